package inventory

import (
	"context"
)

// Repository is the in-process inventory mapping.
type Repository interface {
	// Add increments (or creates) the entry and returns the new quantity.
	Add(ctx context.Context, name string, quantity int) (int, error)
	// Remove decrements the entry, clearing it when quantity >= stock, and
	// returns the stock left. It returns ErrNotInStock when the entry is absent.
	Remove(ctx context.Context, name string, quantity int) (RemoveOutcome, int, error)
	Quantity(ctx context.Context, name string) int
	LowStock(ctx context.Context, threshold int) []string
	Snapshot(ctx context.Context) Snapshot
	Replace(ctx context.Context, s Snapshot)
	Len(ctx context.Context) int
}

// SnapshotStore persists whole snapshots.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	// Location names the backing resource for diagnostics.
	Location() string
}
