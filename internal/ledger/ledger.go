// Package ledger holds one session's products and sales and applies stock
// and sale mutations to them. A Ledger performs no I/O; persistence and
// transport live in the session, store and api packages.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-dashboard/internal/models"
)

// DefaultRestockThreshold is the stock level at or below which a product is reported as low.
const DefaultRestockThreshold int64 = 10

// Ledger is the in-memory product and sale set of a single session.
type Ledger struct {
	mu sync.Mutex

	products  map[int64]*models.Product
	sales     []models.Sale
	movements []models.StockMovement
	saleKeys  map[string]int64

	nextID         int64
	nextMovementID int64

	threshold     int64
	allowNegative bool
	suppliers     []models.Supplier
	now           func() time.Time
}

// Option configures a Ledger
type Option func(*Ledger)

// WithRestockThreshold overrides DefaultRestockThreshold
func WithRestockThreshold(threshold int64) Option {
	return func(l *Ledger) { l.threshold = threshold }
}

// WithAllowNegativeStock lets manual decreases take stock below zero.
func WithAllowNegativeStock(allow bool) Option {
	return func(l *Ledger) { l.allowNegative = allow }
}

// WithSuppliers sets the supplier directory joined by the low-stock scan
func WithSuppliers(suppliers []models.Supplier) Option {
	return func(l *Ledger) {
		l.suppliers = append([]models.Supplier(nil), suppliers...)
	}
}

// WithClock sets the time source used for new sales and movements
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		products:       make(map[int64]*models.Product),
		saleKeys:       make(map[string]int64),
		nextID:         1,
		nextMovementID: 1,
		threshold:      DefaultRestockThreshold,
		suppliers:      models.DefaultSuppliers(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Threshold returns the restock threshold in effect
func (l *Ledger) Threshold() int64 {
	return l.threshold
}

// AddProduct registers a product. Adding a known product id returns ErrProductExists.
func (l *Ledger) AddProduct(p models.Product) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.products[p.ID]; ok {
		return fmt.Errorf("%w: %d", ErrProductExists, p.ID)
	}
	product := p
	l.products[p.ID] = &product
	return nil
}

// AppendSale adds an already completed sale without touching stock.
func (l *Ledger) AppendSale(s models.Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.products[s.ProductID]; !ok {
		return fmt.Errorf("%w: %d", ErrProductNotFound, s.ProductID)
	}
	if s.IdempotencyKey != "" {
		if _, seen := l.saleKeys[s.IdempotencyKey]; seen {
			return fmt.Errorf("%w: key %q", ErrDuplicateSale, s.IdempotencyKey)
		}
		l.saleKeys[s.IdempotencyKey] = s.SalesID
	}

	l.sales = append(l.sales, s)
	if s.SalesID >= l.nextID {
		l.nextID = s.SalesID + 1
	}
	if s.OrderID >= l.nextID {
		l.nextID = s.OrderID + 1
	}
	return nil
}

// Product returns a copy of a product
func (l *Ledger) Product(id int64) (models.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return *p, nil
}

// Products returns all products ordered by id
func (l *Ledger) Products() []models.Product {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sortedProducts()
}

// Sales returns all sales in insertion order
func (l *Ledger) Sales() []models.Sale {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]models.Sale(nil), l.sales...)
}

// Movements returns the stock movement log in insertion order
func (l *Ledger) Movements() []models.StockMovement {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]models.StockMovement(nil), l.movements...)
}

// NextSaleID returns the id the next recorded sale will receive
func (l *Ledger) NextSaleID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.nextID
}

func (l *Ledger) sortedProducts() []models.Product {
	out := make([]models.Product, 0, len(l.products))
	for _, p := range l.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Ledger) logMovement(productID int64, kind string, qty, before, after, ref int64) models.StockMovement {
	m := models.StockMovement{
		ID:          l.nextMovementID,
		ProductID:   productID,
		Kind:        kind,
		Quantity:    qty,
		StockBefore: before,
		StockAfter:  after,
		ReferenceID: ref,
		CreatedAt:   l.now().UTC(),
	}
	l.nextMovementID++
	l.movements = append(l.movements, m)
	return m
}
