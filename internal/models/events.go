package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeStockAdjusted    = "STOCK_ADJUSTED"
	EventTypeSaleRecorded     = "SALE_RECORDED"
	EventTypeLowStockDetected = "LOW_STOCK_DETECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StockAdjustedEvent published after a manual stock change
type StockAdjustedEvent struct {
	BaseEvent
	ProductID   int64  `json:"product_id"`
	Direction   string `json:"direction"`
	Quantity    int64  `json:"quantity"`
	StockBefore int64  `json:"stock_before"`
	StockAfter  int64  `json:"stock_after"`
}

// SaleRecordedEvent published after a sale is appended
type SaleRecordedEvent struct {
	BaseEvent
	SalesID    int64           `json:"sales_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	StockAfter int64           `json:"stock_after"`
}

// LowStockDetectedEvent published when a mutation leaves a product at or below the restock threshold
type LowStockDetectedEvent struct {
	BaseEvent
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Stock        int64  `json:"stock"`
	Threshold    int64  `json:"threshold"`
	SupplierName string `json:"supplier_name,omitempty"`
	Contact      string `json:"contact,omitempty"`
}
