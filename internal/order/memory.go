package order

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps orders in process. Used by tests, the demo CLI and
// the bench runner; the service wires PostgresRepository instead.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*memOrder
	byIdem map[string]string
}

// memOrder carries its own lock so status updates on different orders never
// serialize against each other.
type memOrder struct {
	mu sync.Mutex
	o  *Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[string]*memOrder),
		byIdem: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, o *Order, idemKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idemKey != "" {
		if _, ok := r.byIdem[idemKey]; ok {
			return ErrDuplicateKey
		}
	}
	if _, ok := r.orders[o.ID]; ok {
		return E(KindPersistence, "order %s already exists", o.ID)
	}
	r.orders[o.ID] = &memOrder{o: o.Clone()}
	if idemKey != "" {
		r.byIdem[idemKey] = o.ID
	}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	entry, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, E(KindNotFound, "order %s not found", id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.o.Clone(), nil
}

func (r *MemoryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	r.mu.RLock()
	id, ok := r.byIdem[key]
	r.mu.RUnlock()
	if !ok {
		return nil, E(KindNotFound, "no order for idempotency key")
	}
	return r.Get(ctx, id)
}

func (r *MemoryRepository) ListForActor(_ context.Context, actorID string, role Role) ([]*Order, error) {
	r.mu.RLock()
	entries := make([]*memOrder, 0, len(r.orders))
	for _, entry := range r.orders {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	var out []*Order
	for _, entry := range entries {
		entry.mu.Lock()
		o := entry.o
		match := (role == RoleVendor && o.VendorID == actorID) ||
			(role == RoleSupplier && o.SupplierID == actorID)
		if match {
			out = append(out, o.Clone())
		}
		entry.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, orderID string, expect Status, change StatusChange) (*Order, error) {
	r.mu.RLock()
	entry, ok := r.orders[orderID]
	r.mu.RUnlock()
	if !ok {
		return nil, E(KindNotFound, "order %s not found", orderID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.o.Status != expect {
		return nil, ErrStatusConflict
	}
	entry.o.Status = change.Status
	entry.o.StatusHistory = append(entry.o.StatusHistory, change)
	return entry.o.Clone(), nil
}
