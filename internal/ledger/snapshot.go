package ledger

import (
	"fmt"

	"inventory-dashboard/internal/models"
)

// Snapshot is the serialisable state of a Ledger
type Snapshot struct {
	Products  []models.Product       `json:"products"`
	Sales     []models.Sale          `json:"sales"`
	Movements []models.StockMovement `json:"movements,omitempty"`
	NextID    int64                  `json:"next_id"`
}

// Snapshot copies the ledger state
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		Products:  l.sortedProducts(),
		Sales:     append([]models.Sale(nil), l.sales...),
		Movements: append([]models.StockMovement(nil), l.movements...),
		NextID:    l.nextID,
	}
}

// Restore rebuilds a ledger from a snapshot. The id counter never moves
// backwards: it resumes from the larger of the stored counter and the
// highest sale id present.
func Restore(s Snapshot, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	for _, p := range s.Products {
		if err := l.AddProduct(p); err != nil {
			return nil, fmt.Errorf("restore product: %w", err)
		}
	}
	for _, sale := range s.Sales {
		if err := l.AppendSale(sale); err != nil {
			return nil, fmt.Errorf("restore sale %d: %w", sale.SalesID, err)
		}
	}

	l.movements = append(l.movements, s.Movements...)
	for _, m := range s.Movements {
		if m.ID >= l.nextMovementID {
			l.nextMovementID = m.ID + 1
		}
	}
	if s.NextID > l.nextID {
		l.nextID = s.NextID
	}
	return l, nil
}
