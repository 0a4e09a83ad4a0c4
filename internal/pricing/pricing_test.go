package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/order"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mug(price string, minBulk int32, discountPercent string) inventory.Product {
	return inventory.Product{
		ID:              "sku-mug",
		Name:            "Ceramic Mug",
		Price:           dec(price),
		MinBulkQty:      minBulk,
		DiscountPercent: dec(discountPercent),
		SupplierID:      "supplier-1",
		Active:          true,
	}
}

func TestQuoteBulkDiscountAndStandardFee(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// 5 x 10.00 with a 20% bulk discount from qty 5: gross 50, discount 10,
	// net 40, which does not clear the free delivery threshold.
	q := calc.Quote([]Line{{Product: mug("10", 5, "20"), Quantity: 5}}, order.DeliveryStandard)

	assert.True(t, q.GrossSubtotal.Equal(dec("50")), "gross = %s", q.GrossSubtotal)
	assert.True(t, q.ItemDiscount.Equal(dec("10")), "item discount = %s", q.ItemDiscount)
	assert.True(t, q.NetSubtotal.Equal(dec("40")), "net = %s", q.NetSubtotal)
	assert.True(t, q.DeliveryFee.Equal(dec("8")), "fee = %s", q.DeliveryFee)

	total := calc.Total(q, decimal.Zero)
	assert.True(t, total.Equal(dec("48")), "total = %s", total)
}

func TestQuoteCouponAppliesToNetSubtotal(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	q := calc.Quote([]Line{{Product: mug("10", 5, "20"), Quantity: 5}}, order.DeliveryStandard)

	// A 10% coupon is worth 10% of the post-bulk-discount subtotal, 4.00, not
	// 10% of the gross 50.
	couponDiscount := q.NetSubtotal.Mul(dec("10")).Div(dec("100")).Round(2)
	assert.True(t, couponDiscount.Equal(dec("4")), "coupon discount = %s", couponDiscount)

	total := calc.Total(q, couponDiscount)
	assert.True(t, total.Equal(dec("44")), "total = %s", total)
}

func TestQuoteBelowBulkThresholdPaysFullPrice(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	q := calc.Quote([]Line{{Product: mug("10", 5, "20"), Quantity: 4}}, order.DeliveryStandard)

	assert.True(t, q.ItemDiscount.IsZero(), "item discount = %s", q.ItemDiscount)
	assert.True(t, q.NetSubtotal.Equal(dec("40")), "net = %s", q.NetSubtotal)
}

func TestQuoteFreeDeliveryOverThreshold(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Net 50 exactly still pays for delivery; the threshold is strict.
	q := calc.Quote([]Line{{Product: mug("10", 10, "0"), Quantity: 5}}, order.DeliveryExpress)
	assert.True(t, q.DeliveryFee.Equal(dec("15")), "fee at threshold = %s", q.DeliveryFee)

	q = calc.Quote([]Line{{Product: mug("10", 10, "0"), Quantity: 6}}, order.DeliveryExpress)
	assert.True(t, q.DeliveryFee.IsZero(), "fee above threshold = %s", q.DeliveryFee)
}

func TestQuoteFreeDeliveryUsesPostDiscountSubtotal(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// Gross 60 but net 48 after the bulk discount: the free delivery check
	// runs on the net amount, so delivery is charged.
	q := calc.Quote([]Line{{Product: mug("10", 5, "20"), Quantity: 6}}, order.DeliveryStandard)
	require.True(t, q.NetSubtotal.Equal(dec("48")), "net = %s", q.NetSubtotal)
	assert.True(t, q.DeliveryFee.Equal(dec("8")), "fee = %s", q.DeliveryFee)
}

func TestQuoteMixedLines(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	lines := []Line{
		{Product: mug("10", 5, "20"), Quantity: 5},
		{Product: inventory.Product{
			ID: "sku-plate", Name: "Plate", Price: dec("7.50"),
			MinBulkQty: 10, DiscountPercent: dec("15"),
			SupplierID: "supplier-1", Active: true,
		}, Quantity: 2},
	}
	q := calc.Quote(lines, order.DeliveryStandard)

	require.Len(t, q.Items, 2)
	assert.True(t, q.GrossSubtotal.Equal(dec("65")), "gross = %s", q.GrossSubtotal)
	assert.True(t, q.ItemDiscount.Equal(dec("10")), "item discount = %s", q.ItemDiscount)
	assert.True(t, q.NetSubtotal.Equal(dec("55")), "net = %s", q.NetSubtotal)
	assert.True(t, q.DeliveryFee.IsZero(), "fee = %s", q.DeliveryFee)
	assert.True(t, q.Items[0].Subtotal.Equal(dec("40")), "line subtotal = %s", q.Items[0].Subtotal)
	assert.True(t, q.Items[1].Subtotal.Equal(dec("15")), "line subtotal = %s", q.Items[1].Subtotal)
}

func TestTotalClampsAtZero(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	q := calc.Quote([]Line{{Product: mug("10", 0, "0"), Quantity: 1}}, order.DeliveryStandard)

	total := calc.Total(q, dec("100"))
	assert.True(t, total.IsZero(), "total = %s", total)
}
