package cart

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorvibe/order-core-go/internal/inventory"
	"github.com/vendorvibe/order-core-go/internal/order"
)

// Item snapshots the product's pricing terms at the moment it was added, the
// same way order items do. The live product remains the source of truth at
// placement time.
type Item struct {
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int32           `json:"quantity"`
	MinBulkQty      int32           `json:"min_bulk_qty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type Cart struct {
	VendorID  string    `json:"vendor_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp
}

func (c *Cart) find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Repository stores one cart per vendor. Get fails with a not-found kind when
// the vendor has never saved a cart.
type Repository interface {
	Get(ctx context.Context, vendorID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

// Service implements cart maintenance. Carts only gate on availability at
// edit time; stock is not reserved until the order is placed.
type Service struct {
	carts  Repository
	ledger inventory.Ledger

	now func() time.Time
}

func NewService(carts Repository, ledger inventory.Ledger) *Service {
	return &Service{
		carts:  carts,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, vendorID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, vendorID)
	if order.IsKind(err, order.KindNotFound) {
		return &Cart{VendorID: vendorID, Items: []Item{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) AddItem(ctx context.Context, vendorID, productID string, qty int32) (*Cart, error) {
	if strings.TrimSpace(productID) == "" || qty <= 0 {
		return nil, order.E(order.KindValidation, "product id and a positive quantity are required")
	}
	p, err := s.ledger.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Available < qty {
		return nil, order.E(order.KindInsufficientStock, "product %s has %d available, want %d", productID, p.Available, qty)
	}

	c, err := s.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if i := c.find(productID); i >= 0 {
		c.Items[i].Quantity += qty
	} else {
		c.Items = append(c.Items, Item{
			ProductID:       p.ID,
			Name:            p.Name,
			UnitPrice:       p.Price,
			Quantity:        qty,
			MinBulkQty:      p.MinBulkQty,
			DiscountPercent: p.DiscountPercent,
		})
	}
	return s.save(ctx, c)
}

func (s *Service) UpdateQuantity(ctx context.Context, vendorID, productID string, qty int32) (*Cart, error) {
	if qty < 1 {
		return nil, order.E(order.KindValidation, "quantity must be at least 1")
	}
	p, err := s.ledger.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Available < qty {
		return nil, order.E(order.KindInsufficientStock, "product %s has %d available, want %d", productID, p.Available, qty)
	}

	c, err := s.carts.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	i := c.find(productID)
	if i < 0 {
		return nil, order.E(order.KindNotFound, "product %s not in cart", productID)
	}
	c.Items[i].Quantity = qty
	return s.save(ctx, c)
}

func (s *Service) RemoveItem(ctx context.Context, vendorID, productID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	i := c.find(productID)
	if i < 0 {
		return nil, order.E(order.KindNotFound, "product %s not in cart", productID)
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return s.save(ctx, c)
}

func (s *Service) Clear(ctx context.Context, vendorID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	c.Items = []Item{}
	return s.save(ctx, c)
}

func (s *Service) save(ctx context.Context, c *Cart) (*Cart, error) {
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
