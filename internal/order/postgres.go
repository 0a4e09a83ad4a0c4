package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order, idemKey string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Wrap(KindPersistence, err, "begin create order")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders(id, vendor_id, supplier_id, subtotal, discount, coupon_code, delivery_fee, total, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.VendorID, o.SupplierID, o.Subtotal, o.Discount, nullIfEmpty(o.CouponCode), o.DeliveryFee, o.Total, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return Wrap(KindPersistence, err, "insert order")
	}

	for i, it := range o.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items(order_id, position, product_id, name, unit_price, quantity, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, i, it.ProductID, it.Name, it.UnitPrice, it.Quantity, it.Subtotal,
		)
		if err != nil {
			return Wrap(KindPersistence, err, "insert order item")
		}
	}

	for _, ch := range o.StatusHistory {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_status_history(order_id, status, actor_id, changed_at) VALUES ($1, $2, $3, $4)`,
			o.ID, string(ch.Status), ch.ActorID, ch.At,
		)
		if err != nil {
			return Wrap(KindPersistence, err, "insert status history")
		}
	}

	if idemKey != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_idempotency(idempotency_key, order_id) VALUES ($1, $2)`,
			idemKey, o.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateKey
			}
			return Wrap(KindPersistence, err, "insert idempotency key")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Wrap(KindPersistence, err, "commit create order")
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Order, error) {
	o, err := r.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT order_id FROM order_idempotency WHERE idempotency_key=$1`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "no order for idempotency key")
	}
	if err != nil {
		return nil, Wrap(KindPersistence, err, "lookup idempotency key")
	}
	return r.Get(ctx, id)
}

func (r *PostgresRepository) ListForActor(ctx context.Context, actorID string, role Role) ([]*Order, error) {
	col := "vendor_id"
	if role == RoleSupplier {
		col = "supplier_id"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, vendor_id, supplier_id, subtotal, discount, COALESCE(coupon_code, ''), delivery_fee, total, status, created_at
		 FROM orders WHERE `+col+`=$1 ORDER BY created_at DESC, id DESC`, actorID)
	if err != nil {
		return nil, Wrap(KindPersistence, err, "list orders")
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, Wrap(KindPersistence, err, "scan order")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(KindPersistence, err, "list orders")
	}
	if err := r.loadDetails(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID string, expect Status, change StatusChange) (*Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, Wrap(KindPersistence, err, "begin status update")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Row lock linearizes concurrent transitions on the same order.
	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, Wrap(KindPersistence, err, "lock order row")
	}
	if Status(current) != expect {
		return nil, ErrStatusConflict
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, string(change.Status)); err != nil {
		return nil, Wrap(KindPersistence, err, "update order status")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO order_status_history(order_id, status, actor_id, changed_at) VALUES ($1, $2, $3, $4)`,
		orderID, string(change.Status), change.ActorID, change.At,
	); err != nil {
		return nil, Wrap(KindPersistence, err, "append status history")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, Wrap(KindPersistence, err, "commit status update")
	}

	return r.Get(ctx, orderID)
}

func (r *PostgresRepository) loadOrder(ctx context.Context, id string) (*Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, vendor_id, supplier_id, subtotal, discount, COALESCE(coupon_code, ''), delivery_fee, total, status, created_at
		 FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, E(KindNotFound, "order %s not found", id)
	}
	if err != nil {
		return nil, Wrap(KindPersistence, err, "load order")
	}
	return o, nil
}

// loadDetails fills items and status history for the given orders in two
// batched queries.
func (r *PostgresRepository) loadDetails(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, unit_price, quantity, subtotal
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return Wrap(KindPersistence, err, "load order items")
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it Item
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Subtotal); err != nil {
			return Wrap(KindPersistence, err, "scan order item")
		}
		byID[orderID].Items = append(byID[orderID].Items, it)
	}
	if err := rows.Err(); err != nil {
		return Wrap(KindPersistence, err, "load order items")
	}

	hrows, err := r.pool.Query(ctx,
		`SELECT order_id, status, actor_id, changed_at
		 FROM order_status_history WHERE order_id = ANY($1) ORDER BY order_id, changed_at, id`, ids)
	if err != nil {
		return Wrap(KindPersistence, err, "load status history")
	}
	defer hrows.Close()
	for hrows.Next() {
		var orderID, status string
		var ch StatusChange
		if err := hrows.Scan(&orderID, &status, &ch.ActorID, &ch.At); err != nil {
			return Wrap(KindPersistence, err, "scan status history")
		}
		ch.Status = Status(status)
		byID[orderID].StatusHistory = append(byID[orderID].StatusHistory, ch)
	}
	if err := hrows.Err(); err != nil {
		return Wrap(KindPersistence, err, "load status history")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var status string
	var created time.Time
	err := row.Scan(&o.ID, &o.VendorID, &o.SupplierID, &o.Subtotal, &o.Discount, &o.CouponCode, &o.DeliveryFee, &o.Total, &status, &created)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.CreatedAt = created
	return &o, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique")
}
