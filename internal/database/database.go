package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the schema. Statements are idempotent so every service can
// run them at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(64) PRIMARY KEY,
			name TEXT NOT NULL,
			price NUMERIC(20,4) NOT NULL CHECK (price > 0),
			available INTEGER NOT NULL CHECK (available >= 0),
			min_bulk_qty INTEGER NOT NULL DEFAULT 1 CHECK (min_bulk_qty >= 1),
			discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (discount_percent >= 0 AND discount_percent <= 100),
			supplier_id VARCHAR(64) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_supplier_id ON products(supplier_id)`,

		`CREATE TABLE IF NOT EXISTS coupons (
			code VARCHAR(64) PRIMARY KEY,
			discount_percent NUMERIC(5,2) NOT NULL,
			min_order_value NUMERIC(20,4) NOT NULL DEFAULT 0,
			max_discount_cap NUMERIC(20,4),
			valid_from TIMESTAMP WITH TIME ZONE NOT NULL,
			valid_until TIMESTAMP WITH TIME ZONE NOT NULL,
			usage_limit INTEGER,
			used_count INTEGER NOT NULL DEFAULT 0,
			CHECK (usage_limit IS NULL OR used_count <= usage_limit)
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			vendor_id VARCHAR(64) NOT NULL,
			supplier_id VARCHAR(64) NOT NULL,
			subtotal NUMERIC(20,4) NOT NULL,
			discount NUMERIC(20,4) NOT NULL,
			coupon_code VARCHAR(64),
			delivery_fee NUMERIC(20,4) NOT NULL,
			total NUMERIC(20,4) NOT NULL CHECK (total >= 0),
			status VARCHAR(32) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_vendor_id ON orders(vendor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_supplier_id ON orders(supplier_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS order_items (
			order_id UUID NOT NULL REFERENCES orders(id),
			position INTEGER NOT NULL,
			product_id VARCHAR(64) NOT NULL,
			name TEXT NOT NULL,
			unit_price NUMERIC(20,4) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			subtotal NUMERIC(20,4) NOT NULL,
			PRIMARY KEY (order_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS order_status_history (
			id BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			status VARCHAR(32) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			changed_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_status_history_order_id ON order_status_history(order_id, id)`,

		`CREATE TABLE IF NOT EXISTS order_idempotency (
			idempotency_key VARCHAR(128) PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS carts (
			vendor_id VARCHAR(64) PRIMARY KEY,
			items JSONB NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL,
			topic TEXT NOT NULL,
			key TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			sent_at TIMESTAMP WITH TIME ZONE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(id) WHERE sent_at IS NULL`,
	}

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}
