package ledger

import (
	"fmt"

	"inventory-dashboard/internal/models"
)

// Direction of a manual stock update
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// LowStockItem is a product at or below the restock threshold with its supplier, if known.
type LowStockItem struct {
	Product  models.Product   `json:"product"`
	Supplier *models.Supplier `json:"supplier,omitempty"`
}

// AdjustStock changes a product's stock by amount in the given direction
func (l *Ledger) AdjustStock(productID int64, dir Direction, amount int64) (models.StockMovement, error) {
	if amount <= 0 {
		return models.StockMovement{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return models.StockMovement{}, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	before := p.Stock
	switch dir {
	case Increase:
		p.Stock += amount
		return l.logMovement(productID, models.MovementIncrease, amount, before, p.Stock, 0), nil
	case Decrease:
		if !l.allowNegative && amount > p.Stock {
			return models.StockMovement{}, fmt.Errorf("%w: stock=%d, decrease=%d", ErrNegativeStock, p.Stock, amount)
		}
		p.Stock -= amount
		return l.logMovement(productID, models.MovementDecrease, amount, before, p.Stock, 0), nil
	default:
		return models.StockMovement{}, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
}

// LowStock returns every product whose stock is at or below the threshold, ordered by id
func (l *Ledger) LowStock() []LowStockItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []LowStockItem
	for _, p := range l.sortedProducts() {
		if p.Stock <= l.threshold {
			out = append(out, LowStockItem{Product: p, Supplier: l.supplierFor(p.ID)})
		}
	}
	return out
}

// CheckLowStock reports whether a single product is at or below the threshold
func (l *Ledger) CheckLowStock(productID int64) (LowStockItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok || p.Stock > l.threshold {
		return LowStockItem{}, false
	}
	return LowStockItem{Product: *p, Supplier: l.supplierFor(productID)}, true
}

// first match wins
func (l *Ledger) supplierFor(productID int64) *models.Supplier {
	for i := range l.suppliers {
		if l.suppliers[i].ProductID == productID {
			s := l.suppliers[i]
			return &s
		}
	}
	return nil
}
