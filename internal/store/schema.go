package store

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sellers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'shop',
		address TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS reserved_products (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		seller_name TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		user_email TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		image TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('reserved', 'confirmed', 'cancelled')),
		reserved_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (expires_at > reserved_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reserved_products_user ON reserved_products(user_id, reserved_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_reserved_products_status ON reserved_products(status)`,
	`CREATE TABLE IF NOT EXISTS reservation_events (
		id BIGSERIAL PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		reservation_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		from_status TEXT NOT NULL DEFAULT '',
		to_status TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservation_events_reservation ON reservation_events(reservation_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables and indexes the store uses. Every
// statement is idempotent so it runs on each start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return persistenceErr("ensure schema", err)
		}
	}
	return nil
}
