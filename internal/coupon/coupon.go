package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a promotional code. UsedCount only moves through Redeem/Unredeem
// and never exceeds UsageLimit when one is set.
type Coupon struct {
	Code            string           `json:"code"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	MinOrderValue   decimal.Decimal  `json:"min_order_value"`
	MaxDiscountCap  *decimal.Decimal `json:"max_discount_cap,omitempty"`
	ValidFrom       time.Time        `json:"valid_from"`
	ValidUntil      time.Time        `json:"valid_until"`
	UsageLimit      *int32           `json:"usage_limit,omitempty"`
	UsedCount       int32            `json:"used_count"`
}

// Validator validates and redeems coupons. The usage-limit check and the
// usedCount increment form one atomic unit per code: of two concurrent
// redemptions against a limit of one, exactly one succeeds.
type Validator interface {
	// Redeem checks the code against the order subtotal and, on success,
	// consumes one use and returns the discount amount.
	Redeem(ctx context.Context, code string, orderSubtotal decimal.Decimal) (decimal.Decimal, error)
	// Unredeem hands a use back; placement calls it when a later step of the
	// same attempt fails after redemption.
	Unredeem(ctx context.Context, code string) error
	Upsert(ctx context.Context, c Coupon) error
}

// DiscountFor computes the redeemable discount: percent of the subtotal,
// capped by MaxDiscountCap when set, and never more than the subtotal itself.
func DiscountFor(c Coupon, orderSubtotal decimal.Decimal) decimal.Decimal {
	discount := orderSubtotal.Mul(c.DiscountPercent).Div(decimal.NewFromInt(100)).Round(2)
	ceiling := orderSubtotal
	if c.MaxDiscountCap != nil && c.MaxDiscountCap.LessThan(ceiling) {
		ceiling = *c.MaxDiscountCap
	}
	if discount.GreaterThan(ceiling) {
		return ceiling
	}
	return discount
}
