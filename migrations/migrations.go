// Package migrations embeds the SQL migration set applied by
// database.RunMigrations at startup.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
