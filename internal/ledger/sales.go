package ledger

import (
	"fmt"

	"inventory-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

// SaleRequest represents a request to sell a product
type SaleRequest struct {
	ProductID      int64
	Quantity       int64
	IdempotencyKey string
}

// RecordSale sells quantity units of a product, decrementing its stock and
// appending a sale. A rejected request leaves the ledger unchanged.
func (l *Ledger) RecordSale(req SaleRequest) (models.Sale, error) {
	if req.Quantity <= 0 {
		return models.Sale{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, req.Quantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[req.ProductID]
	if !ok {
		return models.Sale{}, fmt.Errorf("%w: %d", ErrProductNotFound, req.ProductID)
	}

	if req.IdempotencyKey != "" {
		if salesID, seen := l.saleKeys[req.IdempotencyKey]; seen {
			return models.Sale{}, fmt.Errorf("%w: key %q already used by sale %d", ErrDuplicateSale, req.IdempotencyKey, salesID)
		}
	}

	if req.Quantity > p.Stock {
		return models.Sale{}, fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientStock, p.Stock, req.Quantity)
	}

	now := l.now().UTC()
	id := l.nextID
	sale := models.Sale{
		SalesID:        id,
		OrderID:        id,
		ProductID:      p.ID,
		Quantity:       req.Quantity,
		UnitPrice:      p.Price,
		TotalPrice:     p.Price.Mul(decimal.NewFromInt(req.Quantity)),
		OrderDate:      &now,
		IdempotencyKey: req.IdempotencyKey,
	}

	before := p.Stock
	p.Stock -= req.Quantity
	l.nextID++
	l.sales = append(l.sales, sale)
	if req.IdempotencyKey != "" {
		l.saleKeys[req.IdempotencyKey] = id
	}
	l.logMovement(p.ID, models.MovementSale, req.Quantity, before, p.Stock, id)

	return sale, nil
}
