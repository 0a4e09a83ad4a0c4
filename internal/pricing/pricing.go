package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/order"
)

// Config holds the delivery fee schedule. Values are configuration, not
// business law; Load overrides them from the environment.
type Config struct {
	FreeDeliveryThreshold decimal.Decimal
	ExpressFee            decimal.Decimal
	StandardFee           decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		FreeDeliveryThreshold: decimal.NewFromInt(50),
		ExpressFee:            decimal.NewFromInt(15),
		StandardFee:           decimal.NewFromInt(8),
	}
}

type Line struct {
	Product  inventory.Product
	Quantity int32
}

// Quote is the priced order before any coupon is applied. GrossSubtotal is
// Σ price×qty; NetSubtotal is GrossSubtotal minus bulk item discounts and is
// the subtotal coupons validate against and the free-delivery threshold is
// checked against (post-item-discount, pre-coupon).
type Quote struct {
	Items         []order.Item
	GrossSubtotal decimal.Decimal
	ItemDiscount  decimal.Decimal
	NetSubtotal   decimal.Decimal
	DeliveryFee   decimal.Decimal
}

// Calculator is pure: no clocks, no stores, no side effects.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) Calculator {
	return Calculator{cfg: cfg}
}

func (c Calculator) Quote(lines []Line, opt order.DeliveryOption) Quote {
	hundred := decimal.NewFromInt(100)
	q := Quote{
		GrossSubtotal: decimal.Zero,
		ItemDiscount:  decimal.Zero,
	}
	for _, ln := range lines {
		qty := decimal.NewFromInt32(ln.Quantity)
		gross := ln.Product.Price.Mul(qty)
		discount := decimal.Zero
		if ln.Product.MinBulkQty >= 1 && ln.Quantity >= ln.Product.MinBulkQty {
			discount = gross.Mul(ln.Product.DiscountPercent).Div(hundred).Round(2)
		}
		q.Items = append(q.Items, order.Item{
			ProductID: ln.Product.ID,
			Name:      ln.Product.Name,
			UnitPrice: ln.Product.Price,
			Quantity:  ln.Quantity,
			Subtotal:  gross.Sub(discount),
		})
		q.GrossSubtotal = q.GrossSubtotal.Add(gross)
		q.ItemDiscount = q.ItemDiscount.Add(discount)
	}
	q.NetSubtotal = q.GrossSubtotal.Sub(q.ItemDiscount)
	q.DeliveryFee = c.deliveryFee(q.NetSubtotal, opt)
	return q
}

// Total applies the coupon discount and clamps at zero.
func (c Calculator) Total(q Quote, couponDiscount decimal.Decimal) decimal.Decimal {
	total := q.NetSubtotal.Sub(couponDiscount).Add(q.DeliveryFee)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func (c Calculator) deliveryFee(netSubtotal decimal.Decimal, opt order.DeliveryOption) decimal.Decimal {
	if netSubtotal.GreaterThan(c.cfg.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	if opt == order.DeliveryExpress {
		return c.cfg.ExpressFee
	}
	return c.cfg.StandardFee
}
