package inventory

import (
	"context"
	"sync"

	"github.com/vendorvibe/order-core-go/internal/order"
)

// MemoryLedger keeps the catalog in process with a lock per product, so
// reservations on unrelated products never serialize against each other.
type MemoryLedger struct {
	mu       sync.RWMutex
	products map[string]*memProduct
}

type memProduct struct {
	mu sync.Mutex
	p  Product
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{products: make(map[string]*memProduct)}
}

func (l *MemoryLedger) Product(_ context.Context, id string) (Product, error) {
	entry, ok := l.lookup(id)
	if !ok {
		return Product{}, order.E(order.KindNotFound, "product %s not found", id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.p.Active {
		return Product{}, order.E(order.KindNotFound, "product %s is inactive", id)
	}
	return entry.p, nil
}

func (l *MemoryLedger) Reserve(_ context.Context, id string, qty int32) error {
	entry, ok := l.lookup(id)
	if !ok {
		return order.E(order.KindNotFound, "product %s not found", id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.p.Active {
		return order.E(order.KindNotFound, "product %s is inactive", id)
	}
	if entry.p.Available < qty {
		return order.E(order.KindInsufficientStock, "product %s has %d available, want %d", id, entry.p.Available, qty)
	}
	entry.p.Available -= qty
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, id string, qty int32) error {
	entry, ok := l.lookup(id)
	if !ok {
		return order.E(order.KindNotFound, "product %s not found", id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.p.Available += qty
	return nil
}

func (l *MemoryLedger) Upsert(_ context.Context, p Product) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.products[p.ID]; ok {
		entry.mu.Lock()
		entry.p = p
		entry.mu.Unlock()
		return nil
	}
	l.products[p.ID] = &memProduct{p: p}
	return nil
}

// Available reports current availability, mainly for tests and the bench
// runner's invariant checks.
func (l *MemoryLedger) Available(id string) (int32, bool) {
	entry, ok := l.lookup(id)
	if !ok {
		return 0, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.p.Available, true
}

func (l *MemoryLedger) lookup(id string) (*memProduct, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.products[id]
	return entry, ok
}
