package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id, vendorID, supplierID string, createdAt time.Time) *Order {
	return &Order{
		ID:         id,
		VendorID:   vendorID,
		SupplierID: supplierID,
		Items: []Item{
			{ProductID: "sku-1", Name: "Widget", UnitPrice: decimal.NewFromInt(10), Quantity: 2, Subtotal: decimal.NewFromInt(20)},
		},
		Subtotal:    decimal.NewFromInt(20),
		Discount:    decimal.Zero,
		DeliveryFee: decimal.NewFromInt(8),
		Total:       decimal.NewFromInt(28),
		Status:      StatusPending,
		StatusHistory: []StatusChange{
			{Status: StatusPending, ActorID: vendorID, At: createdAt},
		},
		CreatedAt: createdAt,
	}
}

func TestCreateAndGetClonesTheAggregate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	o := sampleOrder("o-1", "vendor-1", "supplier-1", time.Now())

	require.NoError(t, repo.Create(ctx, o, ""))

	got, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99
	got.StatusHistory[0].Status = StatusShipped

	again, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), again.Items[0].Quantity)
	assert.Equal(t, StatusPending, again.StatusHistory[0].Status)
}

func TestGetMissingOrder(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Get(context.Background(), "nope")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCreateDuplicateIdempotencyKey(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", "v", "s", now), "key-1"))
	err := repo.Create(ctx, sampleOrder("o-2", "v", "s", now), "key-1")
	assert.ErrorIs(t, err, ErrDuplicateKey)

	got, err := repo.GetByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.ID)
}

func TestListForActorFiltersByRoleNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", "vendor-1", "supplier-1", base), ""))
	require.NoError(t, repo.Create(ctx, sampleOrder("o-2", "vendor-1", "supplier-2", base.Add(time.Minute)), ""))
	require.NoError(t, repo.Create(ctx, sampleOrder("o-3", "vendor-2", "supplier-1", base.Add(2*time.Minute)), ""))

	asVendor, err := repo.ListForActor(ctx, "vendor-1", RoleVendor)
	require.NoError(t, err)
	require.Len(t, asVendor, 2)
	assert.Equal(t, "o-2", asVendor[0].ID)
	assert.Equal(t, "o-1", asVendor[1].ID)

	asSupplier, err := repo.ListForActor(ctx, "supplier-1", RoleSupplier)
	require.NoError(t, err)
	require.Len(t, asSupplier, 2)
	assert.Equal(t, "o-3", asSupplier[0].ID)
	assert.Equal(t, "o-1", asSupplier[1].ID)

	// A vendor id queried in the supplier role matches nothing.
	none, err := repo.ListForActor(ctx, "vendor-1", RoleSupplier)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateStatusAppendsHistory(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", "v", "s", time.Now()), ""))

	updated, err := repo.UpdateStatus(ctx, "o-1", StatusPending, StatusChange{Status: StatusConfirmed, ActorID: "s", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, StatusConfirmed, updated.StatusHistory[1].Status)
	assert.Equal(t, StatusPending, updated.StatusHistory[0].Status)
}

func TestUpdateStatusCompareAndSwap(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", "v", "s", time.Now()), ""))

	_, err := repo.UpdateStatus(ctx, "o-1", StatusConfirmed, StatusChange{Status: StatusProcessing, ActorID: "s", At: time.Now()})
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestConcurrentUpdateStatusSingleWinner(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", "v", "s", time.Now()), ""))

	const racers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateStatus(ctx, "o-1", StatusPending, StatusChange{Status: StatusConfirmed, ActorID: "s", At: time.Now()})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 2)
}
