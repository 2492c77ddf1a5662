package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order record not found")

// OrderRecord is the locally persisted snapshot of a submitted order.
// Addresses are stored as JSONB maps so schema changes on the platform
// side do not require a migration here.
type OrderRecord struct {
	ID              uuid.UUID
	PlatformOrderID string
	Number          string
	Status          string
	Paid            bool
	Email           string
	CustomerName    string
	Currency        string
	SubtotalCents   int64
	TaxCents        int64
	ShippingCents   int64
	TotalCents      int64
	PaymentMethod   string
	BillingAddress  map[string]string
	ShippingAddress map[string]string
	CreatedAt       time.Time
}

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) (*OrderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &OrderStore{pool: pool}, nil
}

const orderColumns = `id, platform_order_id, order_number, status, paid, email, customer_name,
	currency, subtotal_cents, tax_cents, shipping_cents, total_cents, payment_method,
	billing_address, shipping_address, created_at`

func (s *OrderStore) Create(ctx context.Context, record *OrderRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO order_records (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.PlatformOrderID,
		record.Number,
		record.Status,
		record.Paid,
		record.Email,
		record.CustomerName,
		record.Currency,
		record.SubtotalCents,
		record.TaxCents,
		record.ShippingCents,
		record.TotalCents,
		record.PaymentMethod,
		record.BillingAddress,
		record.ShippingAddress,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order record: %w", err)
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (*OrderRecord, error) {
	const query = `SELECT ` + orderColumns + ` FROM order_records WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, id))
}

func (s *OrderStore) GetByPlatformOrderID(ctx context.Context, platformOrderID string) (*OrderRecord, error) {
	const query = `SELECT ` + orderColumns + ` FROM order_records WHERE platform_order_id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, platformOrderID))
}

func (s *OrderStore) scanOne(row pgx.Row) (*OrderRecord, error) {
	var record OrderRecord
	err := row.Scan(
		&record.ID,
		&record.PlatformOrderID,
		&record.Number,
		&record.Status,
		&record.Paid,
		&record.Email,
		&record.CustomerName,
		&record.Currency,
		&record.SubtotalCents,
		&record.TaxCents,
		&record.ShippingCents,
		&record.TotalCents,
		&record.PaymentMethod,
		&record.BillingAddress,
		&record.ShippingAddress,
		&record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order record: %w", err)
	}
	return &record, nil
}
