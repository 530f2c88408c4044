package store

import (
	"context"
	"time"

	"inventory-dashboard/internal/models"
)

type restockRow struct {
	ID           int64  `db:"id"`
	EventID      string `db:"event_id"`
	SessionID    string `db:"session_id"`
	ProductID    int64  `db:"product_id"`
	ProductName  string `db:"product_name"`
	Stock        int64  `db:"stock"`
	SupplierName string `db:"supplier_name"`
	Contact      string `db:"contact"`
	CreatedAt    string `db:"created_at"`
}

// CreateRestockRequest records a restock request; a repeated event id is ignored
func (s *Store) CreateRestockRequest(ctx context.Context, req *models.RestockRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO restock_requests (event_id, session_id, product_id, product_name, stock, supplier_name, contact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`),
		req.EventID, req.SessionID, req.ProductID, req.ProductName, req.Stock,
		req.SupplierName, req.Contact, formatTime(req.CreatedAt))
	return err
}

// ListRestockRequests returns restock requests oldest first
func (s *Store) ListRestockRequests(ctx context.Context) ([]models.RestockRequest, error) {
	var rows []restockRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM restock_requests ORDER BY id"); err != nil {
		return nil, err
	}

	out := make([]models.RestockRequest, len(rows))
	for i, r := range rows {
		out[i] = models.RestockRequest{
			ID:           r.ID,
			EventID:      r.EventID,
			SessionID:    r.SessionID,
			ProductID:    r.ProductID,
			ProductName:  r.ProductName,
			Stock:        r.Stock,
			SupplierName: r.SupplierName,
			Contact:      r.Contact,
			CreatedAt:    parseTime(r.CreatedAt),
		}
	}
	return out, nil
}
