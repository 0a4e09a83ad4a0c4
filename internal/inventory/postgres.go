package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorvibe/order-core-go/internal/order"
)

// PostgresLedger relies on row-level conditional updates for atomicity: the
// decrement carries its own availability guard, so two concurrent reserves
// can never drive a counter negative.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Product(ctx context.Context, id string) (Product, error) {
	var p Product
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, price, available, min_bulk_qty, discount_percent, supplier_id, active
		 FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Available, &p.MinBulkQty, &p.DiscountPercent, &p.SupplierID, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, order.E(order.KindNotFound, "product %s not found", id)
	}
	if err != nil {
		return Product{}, order.Wrap(order.KindPersistence, err, "load product %s", id)
	}
	if !p.Active {
		return Product{}, order.E(order.KindNotFound, "product %s is inactive", id)
	}
	return p, nil
}

func (l *PostgresLedger) Reserve(ctx context.Context, id string, qty int32) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE products SET available = available - $2
		 WHERE id = $1 AND active AND available >= $2`, id, qty)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "reserve product %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The guarded update matched nothing; distinguish missing/inactive from
	// insufficient stock for the caller.
	var active bool
	var available int32
	err = l.pool.QueryRow(ctx, `SELECT active, available FROM products WHERE id=$1`, id).Scan(&active, &available)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
		return order.E(order.KindNotFound, "product %s not found", id)
	}
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "inspect product %s", id)
	}
	return order.E(order.KindInsufficientStock, "product %s has %d available, want %d", id, available, qty)
}

func (l *PostgresLedger) Release(ctx context.Context, id string, qty int32) error {
	tag, err := l.pool.Exec(ctx, `UPDATE products SET available = available + $2 WHERE id = $1`, id, qty)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "release product %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.E(order.KindNotFound, "product %s not found", id)
	}
	return nil
}

func (l *PostgresLedger) Upsert(ctx context.Context, p Product) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO products(id, name, price, available, min_bulk_qty, discount_percent, supplier_id, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name=EXCLUDED.name, price=EXCLUDED.price, available=EXCLUDED.available,
		   min_bulk_qty=EXCLUDED.min_bulk_qty, discount_percent=EXCLUDED.discount_percent,
		   supplier_id=EXCLUDED.supplier_id, active=EXCLUDED.active`,
		p.ID, p.Name, p.Price, p.Available, p.MinBulkQty, p.DiscountPercent, p.SupplierID, p.Active)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "upsert product %s", p.ID)
	}
	return nil
}
