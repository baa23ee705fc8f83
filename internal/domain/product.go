package domain

import "time"

// Product is the catalog identity a StockRow is keyed against. Product data
// itself is owned elsewhere; this package only carries the fields the
// inventory core needs to make reservation and reporting decisions.
type Product struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     int64     `json:"price_cents"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Warehouse is a physical or virtual stock location.
type Warehouse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Priority  int       `json:"priority"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ByPriorityDesc sorts warehouses by descending priority, matching the
// original system's dispatch order for warehouse-wide sync fan-out.
type ByPriorityDesc []Warehouse

func (b ByPriorityDesc) Len() int      { return len(b) }
func (b ByPriorityDesc) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b ByPriorityDesc) Less(i, j int) bool {
	if b[i].Priority != b[j].Priority {
		return b[i].Priority > b[j].Priority
	}
	return b[i].Name < b[j].Name
}
