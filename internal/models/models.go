package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a stocked item
type Product struct {
	ID    int64           `db:"product_id" json:"product_id"`
	Name  string          `db:"product_name" json:"product_name"`
	Stock int64           `db:"stock" json:"stock"`
	Price decimal.Decimal `db:"price" json:"price"`
}

// Sale represents a recorded sale of a single product
type Sale struct {
	SalesID    int64           `json:"sales_id"`
	OrderID    int64           `json:"order_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	// OrderDate is nil when the source value could not be parsed.
	OrderDate      *time.Time `json:"order_date,omitempty"`
	RawOrderDate   string     `json:"raw_order_date,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
}

// Supplier represents a product supplier contact
type Supplier struct {
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"supplier_name" json:"supplier_name"`
	Contact   string `db:"contact" json:"contact"`
}

// StockMovement records a single change to a product's stock
type StockMovement struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	Kind        string    `json:"kind"`
	Quantity    int64     `json:"quantity"`
	StockBefore int64     `json:"stock_before"`
	StockAfter  int64     `json:"stock_after"`
	ReferenceID int64     `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Movement kinds
const (
	MovementIncrease = "increase"
	MovementDecrease = "decrease"
	MovementSale     = "sale"
)

// DefaultSuppliers is the built-in supplier directory
func DefaultSuppliers() []Supplier {
	return []Supplier{
		{ProductID: 1, Name: "Supplier A", Contact: "a@example.com"},
		{ProductID: 2, Name: "Supplier B", Contact: "b@example.com"},
		{ProductID: 3, Name: "Supplier C", Contact: "c@example.com"},
	}
}

// RestockRequest is a persisted request to a supplier for a low-stock product
type RestockRequest struct {
	ID           int64     `json:"id"`
	EventID      string    `json:"event_id"`
	SessionID    string    `json:"session_id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Stock        int64     `json:"stock"`
	SupplierName string    `json:"supplier_name"`
	Contact      string    `json:"contact"`
	CreatedAt    time.Time `json:"created_at"`
}
