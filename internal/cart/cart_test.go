package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/order"
)

func newService(t *testing.T) (*Service, *inventory.MemoryLedger) {
	t.Helper()
	ledger := inventory.NewMemoryLedger()
	require.NoError(t, ledger.Upsert(context.Background(), inventory.Product{
		ID: "sku-mug", Name: "Ceramic Mug", Price: decimal.NewFromInt(10),
		Available: 5, MinBulkQty: 5, DiscountPercent: decimal.NewFromInt(20),
		SupplierID: "supplier-1", Active: true,
	}))
	return NewService(NewMemoryRepository(), ledger), ledger
}

func TestGetReturnsEmptyCartForNewVendor(t *testing.T) {
	svc, _ := newService(t)
	c, err := svc.Get(context.Background(), "vendor-1")
	require.NoError(t, err)
	assert.Equal(t, "vendor-1", c.VendorID)
	assert.Empty(t, c.Items)
}

func TestAddItemSnapshotsPricingTerms(t *testing.T) {
	svc, _ := newService(t)
	c, err := svc.AddItem(context.Background(), "vendor-1", "sku-mug", 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	it := c.Items[0]
	assert.Equal(t, "sku-mug", it.ProductID)
	assert.Equal(t, "Ceramic Mug", it.Name)
	assert.True(t, it.UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int32(2), it.Quantity)
	assert.Equal(t, int32(5), it.MinBulkQty)
	assert.False(t, c.UpdatedAt.IsZero())
}

func TestAddItemMergesQuantities(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "vendor-1", "sku-mug", 2)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "vendor-1", "sku-mug", 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, int32(5), c.Items[0].Quantity)
}

func TestAddItemChecksAvailability(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.AddItem(context.Background(), "vendor-1", "sku-mug", 6)
	assert.True(t, order.IsKind(err, order.KindInsufficientStock))

	_, err = svc.AddItem(context.Background(), "vendor-1", "missing", 1)
	assert.True(t, order.IsKind(err, order.KindNotFound))
}

func TestAddItemDoesNotReserveStock(t *testing.T) {
	svc, ledger := newService(t)
	_, err := svc.AddItem(context.Background(), "vendor-1", "sku-mug", 3)
	require.NoError(t, err)

	got, _ := ledger.Available("sku-mug")
	assert.Equal(t, int32(5), got)
}

func TestUpdateQuantity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "vendor-1", "sku-mug", 2)
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(ctx, "vendor-1", "sku-mug", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(4), c.Items[0].Quantity)

	_, err = svc.UpdateQuantity(ctx, "vendor-1", "sku-mug", 0)
	assert.True(t, order.IsKind(err, order.KindValidation))
	_, err = svc.UpdateQuantity(ctx, "vendor-1", "sku-mug", 6)
	assert.True(t, order.IsKind(err, order.KindInsufficientStock))
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "vendor-1", "sku-mug", 2)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "vendor-1", "sku-mug")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = svc.RemoveItem(ctx, "vendor-1", "sku-mug")
	assert.True(t, order.IsKind(err, order.KindNotFound))

	_, err = svc.AddItem(ctx, "vendor-1", "sku-mug", 2)
	require.NoError(t, err)
	c, err = svc.Clear(ctx, "vendor-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}
