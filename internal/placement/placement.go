package placement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/coupon"
	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/notify"
	"github.com/vendorvibe/order-core-go/internal/order"
	"github.com/vendorvibe/order-core-go/internal/pricing"
	"github.com/vendorvibe/order-core-go/pkg/logging"
)

const createRetries = 2

type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type Request struct {
	VendorID       string
	Items          []ItemRequest
	DeliveryOption order.DeliveryOption
	CouponCode     string
	IdempotencyKey string
}

// Service orchestrates placement as one atomic unit: reserve every item,
// price, redeem the coupon, persist. Any failure after a partial reservation
// compensates with releases (and a coupon unredeem) before the error is
// returned, so a failed placement leaves inventory and coupon usage
// unchanged.
type Service struct {
	ledger     inventory.Ledger
	coupons    coupon.Validator
	orders     order.Repository
	calc       pricing.Calculator
	dispatcher notify.Dispatcher

	now func() time.Time
}

func NewService(ledger inventory.Ledger, coupons coupon.Validator, orders order.Repository, calc pricing.Calculator, dispatcher notify.Dispatcher) *Service {
	return &Service{
		ledger:     ledger,
		coupons:    coupons,
		orders:     orders,
		calc:       calc,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, req Request) (*order.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !order.IsKind(err, order.KindNotFound) {
			return nil, err
		}
	}

	// Resolve every product up front; placement rejects unknown or inactive
	// products and carts spanning more than one supplier.
	lines := make([]pricing.Line, 0, len(req.Items))
	supplierID := ""
	for _, it := range req.Items {
		p, err := s.ledger.Product(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if supplierID == "" {
			supplierID = p.SupplierID
		} else if p.SupplierID != supplierID {
			return nil, order.E(order.KindMultiSupplier, "items span suppliers %s and %s", supplierID, p.SupplierID)
		}
		lines = append(lines, pricing.Line{Product: p, Quantity: it.Quantity})
	}

	// Reserve each line; the first failure releases everything reserved so
	// far, in reverse order, before the error escapes.
	reserved := make([]ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		if err := s.ledger.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, it)
	}

	quote := s.calc.Quote(lines, req.DeliveryOption)

	couponDiscount := decimal.Zero
	if req.CouponCode != "" {
		discount, err := s.coupons.Redeem(ctx, req.CouponCode, quote.NetSubtotal)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		couponDiscount = discount
	}

	now := s.now()
	o := &order.Order{
		ID:          uuid.NewString(),
		VendorID:    req.VendorID,
		SupplierID:  supplierID,
		Items:       quote.Items,
		Subtotal:    quote.GrossSubtotal,
		Discount:    quote.ItemDiscount.Add(couponDiscount),
		CouponCode:  req.CouponCode,
		DeliveryFee: quote.DeliveryFee,
		Total:       s.calc.Total(quote, couponDiscount),
		Status:      order.StatusPending,
		StatusHistory: []order.StatusChange{
			{Status: order.StatusPending, ActorID: req.VendorID, At: now},
		},
		CreatedAt: now,
	}

	if err := s.create(ctx, o, req.IdempotencyKey); err != nil {
		if errors.Is(err, order.ErrDuplicateKey) {
			// Another request with the same key won; hand back its order and
			// undo this attempt's reservations.
			s.compensate(ctx, reserved, req.CouponCode)
			return s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		s.compensate(ctx, reserved, req.CouponCode)
		return nil, err
	}

	s.dispatcher.Publish(ctx, notify.OrderCreated(o))
	return o, nil
}

// create retries transient persistence failures a bounded number of times;
// idempotency conflicts surface immediately.
func (s *Service) create(ctx context.Context, o *order.Order, idemKey string) error {
	var err error
	for attempt := 0; attempt <= createRetries; attempt++ {
		err = s.orders.Create(ctx, o, idemKey)
		if err == nil || errors.Is(err, order.ErrDuplicateKey) {
			return err
		}
	}
	return err
}

func (s *Service) compensate(ctx context.Context, reserved []ItemRequest, couponCode string) {
	s.releaseAll(ctx, reserved)
	if couponCode != "" {
		if err := s.coupons.Unredeem(ctx, couponCode); err != nil {
			logging.Log(logging.Fields{
				Service: "placement",
				Coupon:  couponCode,
				Step:    "compensate",
				Status:  "unredeem_error",
				Message: err.Error(),
			})
		}
	}
}

func (s *Service) releaseAll(ctx context.Context, reserved []ItemRequest) {
	for i := len(reserved) - 1; i >= 0; i-- {
		it := reserved[i]
		if err := s.ledger.Release(ctx, it.ProductID, it.Quantity); err != nil {
			logging.Log(logging.Fields{
				Service:   "placement",
				ProductID: it.ProductID,
				Step:      "compensate",
				Status:    "release_error",
				Message:   err.Error(),
			})
		}
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.VendorID) == "" {
		return order.E(order.KindValidation, "vendor id is required")
	}
	if len(req.Items) == 0 {
		return order.E(order.KindValidation, "order must contain at least one item")
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return order.E(order.KindValidation, "each item needs a product id")
		}
		if it.Quantity <= 0 {
			return order.E(order.KindValidation, "quantity for product %s must be positive", it.ProductID)
		}
	}
	if !req.DeliveryOption.Valid() {
		return order.E(order.KindValidation, "unknown delivery option %q", req.DeliveryOption)
	}
	return nil
}
