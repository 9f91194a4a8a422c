package inventory

import (
	"errors"
	"strconv"
	"strings"
)

// DefaultLowStockThreshold is the threshold used when the caller supplies none.
const DefaultLowStockThreshold = 5

const (
	FailureReasonInvalidInput     = "invalid_input"
	FailureReasonNotInStock       = "not_in_stock"
	FailureReasonNotFound         = "not_found"
	FailureReasonMalformed        = "malformed"
	FailureReasonPersistenceError = "io_error"
	FailureReasonSnapshotDamaged  = "snapshot_damaged"
)

var (
	ErrInvalidItem       = errors.New("inventory: item name must be a non-empty string")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be a whole number")
	ErrNotInStock        = errors.New("inventory: item not in stock")
	ErrSnapshotNotFound  = errors.New("inventory: snapshot not found")
	ErrSnapshotMalformed = errors.New("inventory: snapshot malformed")
	// ErrSnapshotDamaged blocks saves over a snapshot that exists but could not be loaded.
	ErrSnapshotDamaged   = errors.New("inventory: stored snapshot could not be loaded; refusing to overwrite")
)

// Item is one entry of the inventory mapping.
type Item struct {
	Name     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// ValidateItem reports whether name can be used as an inventory key.
func ValidateItem(name string) error {
	if name == "" {
		return ErrInvalidItem
	}
	return nil
}

// ParseQuantity parses a base-10 whole number as typed on a command line.
func ParseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}

// RemoveOutcome tells whether a removal decremented the entry or cleared it.
type RemoveOutcome int

const (
	Decremented RemoveOutcome = iota + 1
	Cleared
)

func (o RemoveOutcome) String() string {
	switch o {
	case Decremented:
		return "decremented"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// ReasonFromError maps domain errors to low-cardinality reasons for logs and metrics.
func ReasonFromError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidQuantity):
		return FailureReasonInvalidInput
	case errors.Is(err, ErrNotInStock):
		return FailureReasonNotInStock
	case errors.Is(err, ErrSnapshotNotFound):
		return FailureReasonNotFound
	case errors.Is(err, ErrSnapshotMalformed):
		return FailureReasonMalformed
	case errors.Is(err, ErrSnapshotDamaged):
		return FailureReasonSnapshotDamaged
	default:
		return FailureReasonPersistenceError
	}
}
