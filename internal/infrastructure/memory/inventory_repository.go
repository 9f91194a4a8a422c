package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
)

// InventoryRepository is the ordered item → quantity mapping. Keys keep the
// slot of their first insertion until removed.
type InventoryRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]int
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		items: make(map[string]int),
	}
}

func (r *InventoryRepository) Add(ctx context.Context, name string, quantity int) (int, error) {
	_ = ctx
	if err := domain.ValidateItem(name); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[name]
	if !ok {
		r.order = append(r.order, name)
	}
	r.items[name] = current + quantity
	return r.items[name], nil
}

func (r *InventoryRepository) Remove(ctx context.Context, name string, quantity int) (domain.RemoveOutcome, int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[name]
	if !ok {
		return 0, 0, domain.ErrNotInStock
	}
	if current > quantity {
		r.items[name] = current - quantity
		return domain.Decremented, r.items[name], nil
	}
	r.deleteLocked(name)
	return domain.Cleared, 0, nil
}

func (r *InventoryRepository) Quantity(ctx context.Context, name string) int {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.items[name]
}

func (r *InventoryRepository) LowStock(ctx context.Context, threshold int) []string {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	low := make([]string, 0)
	for _, name := range r.order {
		if r.items[name] < threshold {
			low = append(low, name)
		}
	}
	return low
}

func (r *InventoryRepository) Snapshot(ctx context.Context) domain.Snapshot {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(domain.Snapshot, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, domain.Item{Name: name, Quantity: r.items[name]})
	}
	return out
}

// Replace swaps the whole mapping for the snapshot content. A nil or empty
// snapshot empties the repository.
func (r *InventoryRepository) Replace(ctx context.Context, s domain.Snapshot) {
	_ = ctx

	order := make([]string, 0, len(s))
	items := make(map[string]int, len(s))
	for _, it := range s {
		if _, ok := items[it.Name]; !ok {
			order = append(order, it.Name)
		}
		items[it.Name] = it.Quantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = order
	r.items = items
}

func (r *InventoryRepository) Len(ctx context.Context) int {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

func (r *InventoryRepository) deleteLocked(name string) {
	delete(r.items, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

var _ domain.Repository = (*InventoryRepository)(nil)
