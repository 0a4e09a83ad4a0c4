package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/notify"
	"github.com/vendorvibe/order-core-go/internal/order"
)

type fixture struct {
	ledger *inventory.MemoryLedger
	orders *order.MemoryRepository
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger: inventory.NewMemoryLedger(),
		orders: order.NewMemoryRepository(),
	}
	f.engine = NewEngine(f.orders, f.ledger, notify.Nop{})

	// Stock as it stands after the order below reserved its quantities.
	ctx := context.Background()
	require.NoError(t, f.ledger.Upsert(ctx, inventory.Product{
		ID: "sku-mug", Name: "Ceramic Mug", Price: decimal.NewFromInt(10),
		Available: 95, MinBulkQty: 1, SupplierID: "supplier-1", Active: true,
	}))
	require.NoError(t, f.ledger.Upsert(ctx, inventory.Product{
		ID: "sku-plate", Name: "Plate", Price: decimal.NewFromInt(5),
		Available: 8, MinBulkQty: 1, SupplierID: "supplier-1", Active: true,
	}))
	return f
}

func (f *fixture) placeOrder(t *testing.T, id string, status order.Status) {
	t.Helper()
	now := time.Now().UTC()
	o := &order.Order{
		ID:         id,
		VendorID:   "vendor-1",
		SupplierID: "supplier-1",
		Items: []order.Item{
			{ProductID: "sku-mug", Name: "Ceramic Mug", UnitPrice: decimal.NewFromInt(10), Quantity: 5, Subtotal: decimal.NewFromInt(50)},
			{ProductID: "sku-plate", Name: "Plate", UnitPrice: decimal.NewFromInt(5), Quantity: 2, Subtotal: decimal.NewFromInt(10)},
		},
		Subtotal:    decimal.NewFromInt(60),
		Discount:    decimal.Zero,
		DeliveryFee: decimal.Zero,
		Total:       decimal.NewFromInt(60),
		Status:      status,
		StatusHistory: []order.StatusChange{
			{Status: status, ActorID: "vendor-1", At: now},
		},
		CreatedAt: now,
	}
	require.NoError(t, f.orders.Create(context.Background(), o, ""))
}

func (f *fixture) available(t *testing.T, id string) int32 {
	t.Helper()
	n, ok := f.ledger.Available(id)
	require.True(t, ok)
	return n
}

func TestUpdateStatusForwardTransition(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusPending)

	o, err := f.engine.UpdateStatus(context.Background(), "o-1", "supplier-1", order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, o.Status)
	require.Len(t, o.StatusHistory, 2)
	assert.Equal(t, order.StatusConfirmed, o.StatusHistory[1].Status)
	assert.Equal(t, "supplier-1", o.StatusHistory[1].ActorID)
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusPending)

	_, err := f.engine.UpdateStatus(context.Background(), "o-1", "supplier-1", order.StatusShipped)
	assert.True(t, order.IsKind(err, order.KindInvalidTransition))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusPending)

	_, err := f.engine.UpdateStatus(context.Background(), "o-1", "supplier-1", order.Status("preparing"))
	assert.True(t, order.IsKind(err, order.KindValidation))
}

func TestUpdateStatusTerminalOrdersAreFrozen(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-done", order.StatusDelivered)
	f.placeOrder(t, "o-gone", order.StatusCancelled)

	ctx := context.Background()
	_, err := f.engine.UpdateStatus(ctx, "o-done", "supplier-1", order.StatusCancelled)
	assert.True(t, order.IsKind(err, order.KindInvalidTransition))
	_, err = f.engine.UpdateStatus(ctx, "o-gone", "supplier-1", order.StatusConfirmed)
	assert.True(t, order.IsKind(err, order.KindInvalidTransition))
}

func TestUpdateStatusRequiresTheSupplier(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusPending)

	_, err := f.engine.UpdateStatus(context.Background(), "o-1", "supplier-2", order.StatusConfirmed)
	assert.True(t, order.IsKind(err, order.KindUnauthorized))

	got, err := f.orders.Get(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.UpdateStatus(context.Background(), "nope", "supplier-1", order.StatusConfirmed)
	assert.True(t, order.IsKind(err, order.KindNotFound))
}

func TestCancelRestoresExactQuantities(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusProcessing)

	o, err := f.engine.UpdateStatus(context.Background(), "o-1", "supplier-1", order.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, int32(100), f.available(t, "sku-mug"))
	assert.Equal(t, int32(10), f.available(t, "sku-plate"))
}

func TestForwardTransitionsDoNotTouchStock(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusPending)

	_, err := f.engine.UpdateStatus(context.Background(), "o-1", "supplier-1", order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int32(95), f.available(t, "sku-mug"))
	assert.Equal(t, int32(8), f.available(t, "sku-plate"))
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, "o-1", order.StatusProcessing)
	ctx := context.Background()

	// Ten concurrent cancellations: cancelled is terminal, so exactly one
	// lands and stock is released exactly once.
	const racers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	cancelled := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.UpdateStatus(ctx, "o-1", "supplier-1", order.StatusCancelled)
			if err == nil {
				mu.Lock()
				cancelled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cancelled)
	assert.Equal(t, int32(100), f.available(t, "sku-mug"))
	assert.Equal(t, int32(10), f.available(t, "sku-plate"))

	got, err := f.orders.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 2)
}
