package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorvibe/order-core-go/internal/order"
)

// PostgresRepository keeps one row per vendor with the items as a JSONB
// document; carts are ephemeral working state, not an aggregate worth
// normalizing.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, vendorID string) (*Cart, error) {
	var items []byte
	var updated time.Time
	err := r.pool.QueryRow(ctx, `SELECT items, updated_at FROM carts WHERE vendor_id=$1`, vendorID).Scan(&items, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.E(order.KindNotFound, "no cart for vendor %s", vendorID)
	}
	if err != nil {
		return nil, order.Wrap(order.KindPersistence, err, "load cart for vendor %s", vendorID)
	}

	c := &Cart{VendorID: vendorID, UpdatedAt: updated}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, order.Wrap(order.KindPersistence, err, "decode cart items")
	}
	return c, nil
}

func (r *PostgresRepository) Save(ctx context.Context, c *Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "encode cart items")
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO carts(vendor_id, items, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (vendor_id) DO UPDATE SET items=EXCLUDED.items, updated_at=EXCLUDED.updated_at`,
		c.VendorID, items, c.UpdatedAt)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "save cart for vendor %s", c.VendorID)
	}
	return nil
}
