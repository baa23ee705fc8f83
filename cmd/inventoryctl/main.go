// Command inventoryctl provides operator entry points for the inventory
// sync service: checking low-stock products, repairing drift, and driving
// warehouse/marketplace synchronization outside the HTTP surface.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/navneet-singh26/inventory-sync/internal/adapter"
	"github.com/navneet-singh26/inventory-sync/internal/app"
	"github.com/navneet-singh26/inventory-sync/internal/config"
	"github.com/navneet-singh26/inventory-sync/internal/domain"
	"github.com/navneet-singh26/inventory-sync/internal/scheduler"
	"github.com/navneet-singh26/inventory-sync/pkg/logger"
)

// bgTasks tracks work dispatched with --async. There is no external task
// queue wired (unlike the Celery .delay() the original commands used), so
// "async" only means the CLI stops waiting on a synchronous per-job result;
// the process still waits for the dispatch to drain before exiting.
var bgTasks sync.WaitGroup

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("inventoryctl", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps, err := app.BuildDeps(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wire dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	var cmdErr error
	switch os.Args[1] {
	case "check_low_stock":
		cmdErr = checkLowStock(ctx, deps, os.Args[2:])
	case "reconcile_inventory":
		cmdErr = reconcileInventory(ctx, deps, os.Args[2:])
	case "sync_all_stock":
		cmdErr = syncAllStock(ctx, deps, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	bgTasks.Wait()

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: inventoryctl <command> [flags]

commands:
  check_low_stock --threshold N [--export path.csv]
  reconcile_inventory [--warehouse ID] [--async]
  sync_all_stock [--warehouse NAME | --marketplace NAME] [--async]`)
}

func checkLowStock(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("check_low_stock", flag.ExitOnError)
	threshold := fs.Int("threshold", 10, "stock threshold")
	export := fs.String("export", "", "export to CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Printf("Checking products with stock below %d...\n", *threshold)

	if err := deps.Views.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh aggregation views: %w", err)
	}

	alerts, err := deps.Views.LowStockAlerts(ctx, *threshold)
	if err != nil {
		return fmt.Errorf("list low stock alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Println("No low stock products found!")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "SKU\tPRODUCT\tWAREHOUSE\tAVAILABLE\tLEVEL")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", a.SKU, a.ProductID, a.WarehouseCode, a.Available, a.AlertLevel)
	}
	tw.Flush()
	fmt.Printf("\nTotal: %d products with low stock\n", len(alerts))

	if *export != "" {
		if err := exportAlertsCSV(*export, alerts); err != nil {
			return fmt.Errorf("export CSV: %w", err)
		}
		fmt.Printf("\nExported to %s\n", *export)
	}

	return nil
}

func exportAlertsCSV(path string, alerts []domain.LowStockAlertView) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"sku", "product_id", "warehouse_id", "warehouse_code", "available", "alert_level"}); err != nil {
		return err
	}
	for _, a := range alerts {
		row := []string{a.SKU, a.ProductID, a.WarehouseID, a.WarehouseCode, strconv.Itoa(a.Available), string(a.AlertLevel)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func reconcileInventory(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("reconcile_inventory", flag.ExitOnError)
	warehouseID := fs.String("warehouse", "", "specific warehouse id to reconcile")
	async := fs.Bool("async", false, "run reconciliation in a background goroutine without waiting for its report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *warehouseID != "" {
		fmt.Printf("Reconciling warehouse %s...\n", *warehouseID)
	} else {
		fmt.Println("Reconciling all warehouses...")
	}

	if *async {
		bgTasks.Add(1)
		go func() {
			defer bgTasks.Done()
			report := deps.Reconciler.Run(context.Background(), *warehouseID)
			fmt.Printf("Reconciliation task completed: checked=%d discrepancies=%d corrected=%d\n",
				report.TotalChecked, report.DiscrepanciesFound, report.CorrectionsMade)
		}()
		fmt.Println("Reconciliation task queued")
		return nil
	}

	report := deps.Reconciler.Run(ctx, *warehouseID)

	fmt.Println("\nReconciliation Results:")
	fmt.Printf("Total checked: %d\n", report.TotalChecked)
	fmt.Printf("Discrepancies found: %d\n", report.DiscrepanciesFound)
	fmt.Printf("Corrections made: %d\n", report.CorrectionsMade)
	if len(report.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range report.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Println("\nReconciliation completed!")
	return nil
}

func syncAllStock(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("sync_all_stock", flag.ExitOnError)
	warehouse := fs.String("warehouse", "", "specific warehouse adapter name to sync")
	marketplace := fs.String("marketplace", "", "specific marketplace adapter name to sync")
	async := fs.Bool("async", false, "dispatch jobs through the worker pool without waiting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *warehouse != "":
		wh, err := deps.Registry.Warehouse(*warehouse)
		if err != nil {
			return err
		}
		fmt.Printf("Syncing warehouse %s...\n", *warehouse)
		return runWarehouseJobs(ctx, deps, *warehouse, wh, *async)

	case *marketplace != "":
		mp, err := deps.Registry.Marketplace(*marketplace)
		if err != nil {
			return err
		}
		fmt.Printf("Syncing marketplace %s...\n", *marketplace)
		return runMarketplaceJobs(ctx, deps, mp, *async)

	default:
		names := deps.Registry.WarehouseNames()
		fmt.Printf("Syncing %d warehouses...\n", len(names))
		for _, name := range names {
			wh, err := deps.Registry.Warehouse(name)
			if err != nil {
				return err
			}
			if err := runWarehouseJobs(ctx, deps, name, wh, *async); err != nil {
				fmt.Printf("Warehouse %s: error - %v\n", name, err)
			}
		}

		mpNames := deps.Registry.MarketplaceNames()
		fmt.Printf("\nSyncing %d marketplaces...\n", len(mpNames))
		for _, name := range mpNames {
			mp, err := deps.Registry.Marketplace(name)
			if err != nil {
				return err
			}
			if err := runMarketplaceJobs(ctx, deps, mp, *async); err != nil {
				fmt.Printf("Marketplace %s: error - %v\n", name, err)
			}
		}
		fmt.Println("\nAll synchronizations completed!")
		return nil
	}
}

func runWarehouseJobs(ctx context.Context, deps *app.Deps, warehouseName string, wh adapter.WarehouseAdapter, async bool) error {
	products, err := deps.Catalog.ListActiveProducts(ctx)
	if err != nil {
		return fmt.Errorf("list active products: %w", err)
	}
	warehouses, err := deps.Catalog.ListActiveWarehouses(ctx)
	if err != nil {
		return fmt.Errorf("list active warehouses: %w", err)
	}

	jobs := make([]scheduler.Job, 0, len(products)*len(warehouses))
	for _, p := range products {
		p := p
		for _, w := range warehouses {
			w := w
			jobs = append(jobs, scheduler.Job{
				Kind:   scheduler.KindWarehousePull,
				Target: p.SKU + "@" + w.Code,
				Policy: scheduler.WarehousePolicy,
				Run: func(ctx context.Context) error {
					qty, err := wh.GetStock(ctx, p.SKU)
					if err != nil {
						return err
					}
					row, err := deps.Store.Get(ctx, p.ID, w.ID)
					if err != nil {
						return err
					}
					delta := int(qty) - row.Quantity
					if delta == 0 {
						return nil
					}
					_, err = deps.Engine.Adjust(ctx, p.ID, w.ID, delta, domain.TxnSync, "warehouse_sync:"+warehouseName+":"+p.ID)
					return err
				},
			})
		}
	}

	if async {
		bgTasks.Add(1)
		go func() {
			defer bgTasks.Done()
			results := deps.Scheduler.RunFanout(context.Background(), jobs)
			fmt.Printf("Warehouse %s task completed: %d/%d jobs succeeded\n", warehouseName, succeeded(results), len(results))
		}()
		fmt.Printf("Task queued: %d jobs\n", len(jobs))
		return nil
	}

	results := deps.Scheduler.RunFanout(ctx, jobs)
	fmt.Printf("Synced: %d/%d jobs succeeded\n", succeeded(results), len(results))
	return (scheduler.Handle{Results: results}).Err()
}

func runMarketplaceJobs(ctx context.Context, deps *app.Deps, mp adapter.MarketplaceAdapter, async bool) error {
	products, err := deps.Catalog.ListActiveProducts(ctx)
	if err != nil {
		return fmt.Errorf("list active products: %w", err)
	}

	jobs := make([]scheduler.Job, 0, len(products))
	for _, p := range products {
		p := p
		jobs = append(jobs, scheduler.Job{
			Kind:   scheduler.KindMarketplacePush,
			Target: p.SKU,
			Policy: scheduler.MarketplacePolicy,
			Run: func(ctx context.Context) error {
				snap, err := deps.Engine.GetAvailable(ctx, p.ID, "")
				if err != nil {
					return err
				}
				return mp.UpdateStock(ctx, p.SKU, int64(snap.Available))
			},
		})
	}

	if async {
		bgTasks.Add(1)
		go func() {
			defer bgTasks.Done()
			results := deps.Scheduler.RunFanout(context.Background(), jobs)
			fmt.Printf("Marketplace task completed: %d/%d jobs succeeded\n", succeeded(results), len(results))
		}()
		fmt.Printf("Task queued: %d jobs\n", len(jobs))
		return nil
	}

	results := deps.Scheduler.RunFanout(ctx, jobs)
	fmt.Printf("Synced: %d/%d jobs succeeded\n", succeeded(results), len(results))
	return (scheduler.Handle{Results: results}).Err()
}

func succeeded(results []scheduler.Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
