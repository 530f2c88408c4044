package store

import (
	"context"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS suppliers (
	id {{serial}},
	product_id BIGINT NOT NULL,
	supplier_name TEXT NOT NULL,
	contact TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS archives (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	next_id BIGINT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS archive_products (
	archive_id TEXT NOT NULL REFERENCES archives(id),
	product_id BIGINT NOT NULL,
	product_name TEXT NOT NULL,
	stock BIGINT NOT NULL,
	price TEXT NOT NULL,
	PRIMARY KEY (archive_id, product_id)
);
CREATE TABLE IF NOT EXISTS archive_sales (
	archive_id TEXT NOT NULL REFERENCES archives(id),
	line_no INTEGER NOT NULL,
	sales_id BIGINT NOT NULL,
	order_id BIGINT NOT NULL,
	product_id BIGINT NOT NULL,
	quantity BIGINT NOT NULL,
	unit_price TEXT NOT NULL,
	total_price TEXT NOT NULL,
	order_date TEXT NOT NULL DEFAULT '',
	raw_order_date TEXT NOT NULL DEFAULT '',
	idempotency_key TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (archive_id, line_no)
);
CREATE TABLE IF NOT EXISTS restock_requests (
	id {{serial}},
	event_id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	product_id BIGINT NOT NULL,
	product_name TEXT NOT NULL,
	stock BIGINT NOT NULL,
	supplier_name TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS processed_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	processed_at TEXT NOT NULL
)`

func (s *Store) migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	for _, stmt := range strings.Split(strings.ReplaceAll(schema, "{{serial}}", serial), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
