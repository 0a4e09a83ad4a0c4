package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/order"
)

// PostgresValidator locks the coupon row for the duration of the check and
// increment, making redemption atomic per code.
type PostgresValidator struct {
	pool *pgxpool.Pool
}

func NewPostgresValidator(pool *pgxpool.Pool) *PostgresValidator {
	return &PostgresValidator{pool: pool}
}

func (v *PostgresValidator) Redeem(ctx context.Context, code string, orderSubtotal decimal.Decimal) (decimal.Decimal, error) {
	tx, err := v.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, order.Wrap(order.KindPersistence, err, "begin coupon redeem")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var c Coupon
	err = tx.QueryRow(ctx,
		`SELECT code, discount_percent, min_order_value, max_discount_cap, valid_from, valid_until, usage_limit, used_count
		 FROM coupons WHERE code=$1 FOR UPDATE`, code,
	).Scan(&c.Code, &c.DiscountPercent, &c.MinOrderValue, &c.MaxDiscountCap, &c.ValidFrom, &c.ValidUntil, &c.UsageLimit, &c.UsedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, order.E(order.KindCouponNotFound, "coupon %s not found", code)
	}
	if err != nil {
		return decimal.Zero, order.Wrap(order.KindPersistence, err, "load coupon %s", code)
	}

	now := time.Now().UTC()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return decimal.Zero, order.E(order.KindCouponExpired, "coupon %s is not valid at %s", code, now.Format(time.RFC3339))
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return decimal.Zero, order.E(order.KindCouponUsageExceeded, "coupon %s usage limit reached", code)
	}
	if orderSubtotal.LessThan(c.MinOrderValue) {
		return decimal.Zero, order.E(order.KindCouponBelowMinimum, "order subtotal %s below coupon minimum %s", orderSubtotal, c.MinOrderValue)
	}

	if _, err := tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE code=$1`, code); err != nil {
		return decimal.Zero, order.Wrap(order.KindPersistence, err, "increment coupon %s", code)
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, order.Wrap(order.KindPersistence, err, "commit coupon redeem")
	}
	return DiscountFor(c, orderSubtotal), nil
}

func (v *PostgresValidator) Unredeem(ctx context.Context, code string) error {
	_, err := v.pool.Exec(ctx, `UPDATE coupons SET used_count = GREATEST(used_count - 1, 0) WHERE code=$1`, code)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "unredeem coupon %s", code)
	}
	return nil
}

func (v *PostgresValidator) Upsert(ctx context.Context, c Coupon) error {
	_, err := v.pool.Exec(ctx,
		`INSERT INTO coupons(code, discount_percent, min_order_value, max_discount_cap, valid_from, valid_until, usage_limit, used_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (code) DO UPDATE SET
		   discount_percent=EXCLUDED.discount_percent, min_order_value=EXCLUDED.min_order_value,
		   max_discount_cap=EXCLUDED.max_discount_cap, valid_from=EXCLUDED.valid_from,
		   valid_until=EXCLUDED.valid_until, usage_limit=EXCLUDED.usage_limit, used_count=EXCLUDED.used_count`,
		c.Code, c.DiscountPercent, c.MinOrderValue, c.MaxDiscountCap, c.ValidFrom, c.ValidUntil, c.UsageLimit, c.UsedCount)
	if err != nil {
		return order.Wrap(order.KindPersistence, err, "upsert coupon %s", c.Code)
	}
	return nil
}
