package db

// Package db provides the local order-record store. The commerce platform
// stays authoritative for orders; this keeps a denormalized snapshot for
// the confirmation page and emails.

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.ConnConfig.Tracer = newQueryTracer()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the order-record table when missing. The schema is a
// single denormalized table, so plain DDL is enough here.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS order_records (
	id                UUID PRIMARY KEY,
	platform_order_id TEXT NOT NULL UNIQUE,
	order_number      TEXT NOT NULL,
	status            TEXT NOT NULL,
	paid              BOOLEAN NOT NULL DEFAULT FALSE,
	email             TEXT NOT NULL DEFAULT '',
	customer_name     TEXT NOT NULL DEFAULT '',
	currency          TEXT NOT NULL DEFAULT 'USD',
	subtotal_cents    BIGINT NOT NULL DEFAULT 0,
	tax_cents         BIGINT NOT NULL DEFAULT 0,
	shipping_cents    BIGINT NOT NULL DEFAULT 0,
	total_cents       BIGINT NOT NULL DEFAULT 0,
	payment_method    TEXT NOT NULL DEFAULT '',
	billing_address   JSONB,
	shipping_address  JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create order_records table: %w", err)
	}
	return nil
}
