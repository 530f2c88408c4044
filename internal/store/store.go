package store

import (
	"context"
	"fmt"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore connects to the archive database and applies the schema
func NewStore(driver, databaseURL string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// one connection keeps ":memory:" databases alive and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListSuppliers returns the supplier directory in insertion order
func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := s.db.SelectContext(ctx, &suppliers,
		"SELECT product_id, supplier_name, contact FROM suppliers ORDER BY id")
	return suppliers, err
}

// SeedSuppliers inserts suppliers when the directory is empty
func (s *Store) SeedSuppliers(ctx context.Context, suppliers []models.Supplier) error {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM suppliers"); err != nil {
		return fmt.Errorf("failed to count suppliers: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := s.db.Rebind("INSERT INTO suppliers (product_id, supplier_name, contact) VALUES (?, ?, ?)")
	for _, sup := range suppliers {
		if _, err := tx.ExecContext(ctx, query, sup.ProductID, sup.Name, sup.Contact); err != nil {
			return fmt.Errorf("failed to insert supplier %q: %w", sup.Name, err)
		}
	}
	return tx.Commit()
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		s.db.Rebind("SELECT COUNT(*) FROM processed_events WHERE event_id = ?"), eventID)
	return count > 0, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO processed_events (event_id, event_type, processed_at) VALUES (?, ?, ?) ON CONFLICT (event_id) DO NOTHING"),
		eventID, eventType, formatTime(time.Now()))
	return err
}

// fixed width so TEXT columns sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}
