package status

import (
	"context"
	"errors"
	"time"

	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/notify"
	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/pkg/logging"
)

// Engine drives the order lifecycle. Transitions on one order are linearized
// by the repository's compare-and-swap: of two concurrent calls from the same
// prior status, exactly one lands.
type Engine struct {
	orders     order.Repository
	ledger     inventory.Ledger
	dispatcher notify.Dispatcher

	now func() time.Time
}

func NewEngine(orders order.Repository, ledger inventory.Ledger, dispatcher notify.Dispatcher) *Engine {
	return &Engine{
		orders:     orders,
		ledger:     ledger,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// UpdateStatus moves an order to next on behalf of its supplier. A move into
// cancelled returns every reserved quantity to the inventory ledger.
func (e *Engine) UpdateStatus(ctx context.Context, orderID, actorID string, next order.Status) (*order.Order, error) {
	if !next.Valid() {
		return nil, order.E(order.KindValidation, "unknown status %q", next)
	}

	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SupplierID != actorID {
		return nil, order.E(order.KindUnauthorized, "actor %s is not the supplier of order %s", actorID, orderID)
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, order.E(order.KindInvalidTransition, "cannot move order from %s to %s", o.Status, next)
	}

	prev := o.Status
	updated, err := e.orders.UpdateStatus(ctx, orderID, prev, order.StatusChange{
		Status:  next,
		ActorID: actorID,
		At:      e.now(),
	})
	if errors.Is(err, order.ErrStatusConflict) {
		return nil, order.E(order.KindInvalidTransition, "order %s changed status concurrently", orderID)
	}
	if err != nil {
		return nil, err
	}

	if next == order.StatusCancelled {
		e.restoreStock(ctx, updated)
	}

	e.dispatcher.Publish(ctx, notify.StatusChanged(updated, prev, next))
	return updated, nil
}

// restoreStock releases the summed reserved quantity per product. The
// transition is already committed, so release failures are logged, not
// propagated.
func (e *Engine) restoreStock(ctx context.Context, o *order.Order) {
	for productID, qty := range o.QuantityByProduct() {
		if err := e.ledger.Release(ctx, productID, qty); err != nil {
			logging.Log(logging.Fields{
				Service:   "status-engine",
				OrderID:   o.ID,
				ProductID: productID,
				Step:      "cancel_release",
				Status:    "release_error",
				Message:   err.Error(),
			})
		}
	}
}
