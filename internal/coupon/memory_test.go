package coupon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorvibe/order-core-go/internal/order"
)

var baseTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func validator(t *testing.T, c Coupon) *MemoryValidator {
	t.Helper()
	v := NewMemoryValidator().WithClock(func() time.Time { return baseTime })
	require.NoError(t, v.Upsert(context.Background(), c))
	return v
}

func saveTen() Coupon {
	return Coupon{
		Code:            "SAVE10",
		DiscountPercent: decimal.NewFromInt(10),
		MinOrderValue:   decimal.NewFromInt(30),
		ValidFrom:       baseTime.Add(-24 * time.Hour),
		ValidUntil:      baseTime.Add(24 * time.Hour),
	}
}

func TestRedeemReturnsPercentDiscount(t *testing.T) {
	v := validator(t, saveTen())

	discount, err := v.Redeem(context.Background(), "SAVE10", decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(4)), "discount = %s", discount)

	used, _ := v.UsedCount("SAVE10")
	assert.Equal(t, int32(1), used)
}

func TestRedeemUnknownCode(t *testing.T) {
	v := validator(t, saveTen())
	_, err := v.Redeem(context.Background(), "NOPE", decimal.NewFromInt(40))
	assert.True(t, order.IsKind(err, order.KindCouponNotFound))
}

func TestRedeemOutsideValidityWindow(t *testing.T) {
	c := saveTen()
	c.ValidFrom = baseTime.Add(time.Hour)
	c.ValidUntil = baseTime.Add(2 * time.Hour)
	v := validator(t, c)

	_, err := v.Redeem(context.Background(), "SAVE10", decimal.NewFromInt(40))
	assert.True(t, order.IsKind(err, order.KindCouponExpired))
	used, _ := v.UsedCount("SAVE10")
	assert.Equal(t, int32(0), used)
}

func TestRedeemBelowMinimumOrderValue(t *testing.T) {
	v := validator(t, saveTen())
	_, err := v.Redeem(context.Background(), "SAVE10", decimal.NewFromInt(29))
	assert.True(t, order.IsKind(err, order.KindCouponBelowMinimum))
	used, _ := v.UsedCount("SAVE10")
	assert.Equal(t, int32(0), used)
}

func TestRedeemRespectsMaxDiscountCap(t *testing.T) {
	c := saveTen()
	ceiling := decimal.NewFromInt(3)
	c.MaxDiscountCap = &ceiling
	v := validator(t, c)

	discount, err := v.Redeem(context.Background(), "SAVE10", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.NewFromInt(3)), "discount = %s", discount)
}

func TestUnredeemHandsBackOneUse(t *testing.T) {
	limit := int32(1)
	c := saveTen()
	c.UsageLimit = &limit
	v := validator(t, c)
	ctx := context.Background()

	_, err := v.Redeem(ctx, "SAVE10", decimal.NewFromInt(40))
	require.NoError(t, err)
	_, err = v.Redeem(ctx, "SAVE10", decimal.NewFromInt(40))
	assert.True(t, order.IsKind(err, order.KindCouponUsageExceeded))

	require.NoError(t, v.Unredeem(ctx, "SAVE10"))
	_, err = v.Redeem(ctx, "SAVE10", decimal.NewFromInt(40))
	require.NoError(t, err)
}

func TestUnredeemNeverGoesNegative(t *testing.T) {
	v := validator(t, saveTen())
	require.NoError(t, v.Unredeem(context.Background(), "SAVE10"))
	used, _ := v.UsedCount("SAVE10")
	assert.Equal(t, int32(0), used)
}

func TestConcurrentRedeemHonorsUsageLimit(t *testing.T) {
	limit := int32(1)
	c := saveTen()
	c.UsageLimit = &limit
	v := validator(t, c)
	ctx := context.Background()

	const racers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Redeem(ctx, "SAVE10", decimal.NewFromInt(40)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	used, _ := v.UsedCount("SAVE10")
	assert.Equal(t, int32(1), used)
}

func TestDiscountForNeverExceedsSubtotal(t *testing.T) {
	c := Coupon{Code: "ALL", DiscountPercent: decimal.NewFromInt(150)}
	discount := DiscountFor(c, decimal.NewFromInt(20))
	assert.True(t, discount.Equal(decimal.NewFromInt(20)), "discount = %s", discount)
}
