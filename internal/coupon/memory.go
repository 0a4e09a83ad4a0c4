package coupon

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/order"
)

type MemoryValidator struct {
	mu      sync.RWMutex
	coupons map[string]*memCoupon

	// now is swappable so expiry behavior is testable.
	now func() time.Time
}

type memCoupon struct {
	mu sync.Mutex
	c  Coupon
}

func NewMemoryValidator() *MemoryValidator {
	return &MemoryValidator{
		coupons: make(map[string]*memCoupon),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (v *MemoryValidator) WithClock(now func() time.Time) *MemoryValidator {
	v.now = now
	return v
}

func (v *MemoryValidator) Redeem(_ context.Context, code string, orderSubtotal decimal.Decimal) (decimal.Decimal, error) {
	entry, ok := v.lookup(code)
	if !ok {
		return decimal.Zero, order.E(order.KindCouponNotFound, "coupon %s not found", code)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	c := entry.c

	now := v.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return decimal.Zero, order.E(order.KindCouponExpired, "coupon %s is not valid at %s", code, now.Format(time.RFC3339))
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return decimal.Zero, order.E(order.KindCouponUsageExceeded, "coupon %s usage limit reached", code)
	}
	if orderSubtotal.LessThan(c.MinOrderValue) {
		return decimal.Zero, order.E(order.KindCouponBelowMinimum, "order subtotal %s below coupon minimum %s", orderSubtotal, c.MinOrderValue)
	}

	entry.c.UsedCount++
	return DiscountFor(c, orderSubtotal), nil
}

func (v *MemoryValidator) Unredeem(_ context.Context, code string) error {
	entry, ok := v.lookup(code)
	if !ok {
		return order.E(order.KindCouponNotFound, "coupon %s not found", code)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.c.UsedCount > 0 {
		entry.c.UsedCount--
	}
	return nil
}

func (v *MemoryValidator) Upsert(_ context.Context, c Coupon) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if entry, ok := v.coupons[c.Code]; ok {
		entry.mu.Lock()
		entry.c = c
		entry.mu.Unlock()
		return nil
	}
	v.coupons[c.Code] = &memCoupon{c: c}
	return nil
}

// UsedCount reports current usage, for tests.
func (v *MemoryValidator) UsedCount(code string) (int32, bool) {
	entry, ok := v.lookup(code)
	if !ok {
		return 0, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.c.UsedCount, true
}

func (v *MemoryValidator) lookup(code string) (*memCoupon, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	entry, ok := v.coupons[code]
	return entry, ok
}
