package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrArchiveNotFound is returned for unknown archive ids
var ErrArchiveNotFound = errors.New("archive not found")

// Archive describes a stored ledger snapshot
type Archive struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	NextID    int64     `json:"next_id"`
	CreatedAt time.Time `json:"created_at"`
}

type archiveRow struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	NextID    int64  `db:"next_id"`
	CreatedAt string `db:"created_at"`
}

func (r archiveRow) toArchive() Archive {
	return Archive{ID: r.ID, SessionID: r.SessionID, NextID: r.NextID, CreatedAt: parseTime(r.CreatedAt)}
}

type saleRow struct {
	SalesID        int64  `db:"sales_id"`
	OrderID        int64  `db:"order_id"`
	ProductID      int64  `db:"product_id"`
	Quantity       int64  `db:"quantity"`
	UnitPrice      string `db:"unit_price"`
	TotalPrice     string `db:"total_price"`
	OrderDate      string `db:"order_date"`
	RawOrderDate   string `db:"raw_order_date"`
	IdempotencyKey string `db:"idempotency_key"`
}

func (r saleRow) toSale() (models.Sale, error) {
	unit, err := decimal.NewFromString(r.UnitPrice)
	if err != nil {
		return models.Sale{}, fmt.Errorf("sale %d unit_price: %w", r.SalesID, err)
	}
	total, err := decimal.NewFromString(r.TotalPrice)
	if err != nil {
		return models.Sale{}, fmt.Errorf("sale %d total_price: %w", r.SalesID, err)
	}

	sale := models.Sale{
		SalesID:        r.SalesID,
		OrderID:        r.OrderID,
		ProductID:      r.ProductID,
		Quantity:       r.Quantity,
		UnitPrice:      unit,
		TotalPrice:     total,
		RawOrderDate:   r.RawOrderDate,
		IdempotencyKey: r.IdempotencyKey,
	}
	if r.OrderDate != "" {
		d := parseTime(r.OrderDate)
		sale.OrderDate = &d
	}
	return sale, nil
}

// SaveArchive stores a ledger snapshot and returns the new archive
func (s *Store) SaveArchive(ctx context.Context, sessionID string, snap ledger.Snapshot) (*Archive, error) {
	archive := &Archive{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		NextID:    snap.NextID,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		s.db.Rebind("INSERT INTO archives (id, session_id, next_id, created_at) VALUES (?, ?, ?, ?)"),
		archive.ID, archive.SessionID, archive.NextID, formatTime(archive.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert archive: %w", err)
	}

	productQuery := s.db.Rebind(`
		INSERT INTO archive_products (archive_id, product_id, product_name, stock, price)
		VALUES (?, ?, ?, ?, ?)`)
	for _, p := range snap.Products {
		if _, err := tx.ExecContext(ctx, productQuery, archive.ID, p.ID, p.Name, p.Stock, p.Price.String()); err != nil {
			return nil, fmt.Errorf("failed to insert archived product %d: %w", p.ID, err)
		}
	}

	saleQuery := s.db.Rebind(`
		INSERT INTO archive_sales (archive_id, line_no, sales_id, order_id, product_id, quantity,
			unit_price, total_price, order_date, raw_order_date, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, sale := range snap.Sales {
		orderDate := ""
		if sale.OrderDate != nil {
			orderDate = formatTime(*sale.OrderDate)
		}
		_, err := tx.ExecContext(ctx, saleQuery,
			archive.ID, i, sale.SalesID, sale.OrderID, sale.ProductID, sale.Quantity,
			sale.UnitPrice.String(), sale.TotalPrice.String(), orderDate, sale.RawOrderDate, sale.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to insert archived sale %d: %w", sale.SalesID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return archive, nil
}

// GetArchive retrieves archive metadata
func (s *Store) GetArchive(ctx context.Context, archiveID string) (*Archive, error) {
	var row archiveRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind("SELECT id, session_id, next_id, created_at FROM archives WHERE id = ?"), archiveID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archiveID)
	}
	if err != nil {
		return nil, err
	}
	archive := row.toArchive()
	return &archive, nil
}

// ListArchives returns archives newest first
func (s *Store) ListArchives(ctx context.Context) ([]Archive, error) {
	var rows []archiveRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, session_id, next_id, created_at FROM archives ORDER BY created_at DESC"); err != nil {
		return nil, err
	}

	archives := make([]Archive, len(rows))
	for i, r := range rows {
		archives[i] = r.toArchive()
	}
	return archives, nil
}

// LoadArchive rebuilds the snapshot stored under archiveID
func (s *Store) LoadArchive(ctx context.Context, archiveID string) (ledger.Snapshot, error) {
	archive, err := s.GetArchive(ctx, archiveID)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	snap := ledger.Snapshot{NextID: archive.NextID}
	err = s.db.SelectContext(ctx, &snap.Products, s.db.Rebind(`
		SELECT product_id, product_name, stock, price
		FROM archive_products WHERE archive_id = ? ORDER BY product_id`), archiveID)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load archived products: %w", err)
	}

	var rows []saleRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT sales_id, order_id, product_id, quantity, unit_price, total_price,
			order_date, raw_order_date, idempotency_key
		FROM archive_sales WHERE archive_id = ? ORDER BY line_no`), archiveID)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load archived sales: %w", err)
	}

	for _, r := range rows {
		sale, err := r.toSale()
		if err != nil {
			return ledger.Snapshot{}, err
		}
		snap.Sales = append(snap.Sales, sale)
	}
	return snap, nil
}
