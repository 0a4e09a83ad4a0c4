package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/pkg/contracts"
	"github.com/vendorvibe/order-core-go/pkg/logging"
)

// Dispatcher delivers order events to interested parties. Publish is
// fire-and-forget: it never blocks the caller, never fails the calling
// operation, and delivery failures are logged only.
type Dispatcher interface {
	Publish(ctx context.Context, ev contracts.OrderEvent)
}

func OrderCreated(o *order.Order) contracts.OrderEvent {
	return contracts.OrderEvent{
		EventID:    uuid.NewString(),
		Type:       contracts.EventOrderCreated,
		OrderID:    o.ID,
		VendorID:   o.VendorID,
		SupplierID: o.SupplierID,
		Order:      marshalOrder(o),
		CreatedAt:  time.Now().UTC(),
	}
}

func StatusChanged(o *order.Order, prev, next order.Status) contracts.OrderEvent {
	return contracts.OrderEvent{
		EventID:    uuid.NewString(),
		Type:       contracts.EventOrderStatusChanged,
		OrderID:    o.ID,
		VendorID:   o.VendorID,
		SupplierID: o.SupplierID,
		PrevStatus: string(prev),
		NewStatus:  string(next),
		Order:      marshalOrder(o),
		CreatedAt:  time.Now().UTC(),
	}
}

func marshalOrder(o *order.Order) json.RawMessage {
	data, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	return data
}

// Nop drops every event. Wired when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, contracts.OrderEvent) {}

// Log writes events to the structured log instead of a broker; the demo CLI
// and tests use it.
type Log struct {
	Service string
}

func (l Log) Publish(_ context.Context, ev contracts.OrderEvent) {
	logging.Log(logging.Fields{
		Service: l.Service,
		OrderID: ev.OrderID,
		EventID: ev.EventID,
		Step:    "notify",
		Status:  ev.Type,
	})
}
