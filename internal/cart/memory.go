package cart

import (
	"context"
	"sync"

	"github.com/vendorvibe/order-core-go/internal/order"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*Cart)}
}

func (r *MemoryRepository) Get(_ context.Context, vendorID string) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[vendorID]
	if !ok {
		return nil, order.E(order.KindNotFound, "no cart for vendor %s", vendorID)
	}
	return c.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, c *Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[c.VendorID] = c.Clone()
	return nil
}
