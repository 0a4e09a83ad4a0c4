package order

import (
	"context"
	"errors"
)

// ErrDuplicateKey reports that an idempotency key is already bound to an
// order. The caller resolves it by fetching the winner's order.
var ErrDuplicateKey = errors.New("idempotency key already bound")

// ErrStatusConflict reports that a status update lost the race: the order's
// current status no longer matches the expected one.
var ErrStatusConflict = errors.New("order status changed concurrently")

// Repository persists order aggregates. Orders are created exactly once and
// never deleted; UpdateStatus is the only mutation and must be a compare-and
// -swap on the current status so concurrent transitions are linearized.
type Repository interface {
	// Create stores a new order. A non-empty idemKey is bound to the order
	// id atomically; a duplicate key fails with ErrDuplicateKey.
	Create(ctx context.Context, o *Order, idemKey string) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// ListForActor returns orders where the actor is the vendor (RoleVendor)
	// or the supplier (RoleSupplier), newest first.
	ListForActor(ctx context.Context, actorID string, role Role) ([]*Order, error)
	// UpdateStatus appends a history entry and moves the order from expect to
	// change.Status. Fails with ErrStatusConflict if the current status is
	// not expect.
	UpdateStatus(ctx context.Context, orderID string, expect Status, change StatusChange) (*Order, error)
}
