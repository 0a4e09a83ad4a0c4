package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryOption string

const (
	DeliveryStandard DeliveryOption = "standard"
	DeliveryExpress  DeliveryOption = "express"
)

func (d DeliveryOption) Valid() bool {
	return d == DeliveryStandard || d == DeliveryExpress
}

// Role identifies which side of an order an actor is on. Authentication is
// the caller's problem; the core only filters and authorizes by role.
type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
)

// Item is a line of a placed order. Name and UnitPrice are snapshots taken at
// placement time and never change afterwards, even if the product does.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type StatusChange struct {
	Status  Status    `json:"status"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
}

// Order is the persisted aggregate. Items and all pricing fields are frozen at
// creation; only Status and StatusHistory mutate afterwards, and StatusHistory
// is append-only. Invariant: the last history entry's status equals Status,
// and Total = Subtotal - Discount + DeliveryFee >= 0, where Discount is the
// sum of bulk item discounts and the coupon discount.
type Order struct {
	ID            string          `json:"id"`
	VendorID      string          `json:"vendor_id"`
	SupplierID    string          `json:"supplier_id"`
	Items         []Item          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	StatusHistory []StatusChange  `json:"status_history"`
	CreatedAt     time.Time       `json:"created_at"`
}

// QuantityByProduct sums ordered quantities per product id, for inventory
// release on cancellation.
func (o *Order) QuantityByProduct() map[string]int32 {
	out := make(map[string]int32, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// Clone returns a deep copy so in-memory storage never hands out aliased
// slices to concurrent readers.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	cp.StatusHistory = append([]StatusChange(nil), o.StatusHistory...)
	return &cp
}
