package inventory_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
)

func TestParseQuantity(t *testing.T) {
	n, err := inventory.ParseQuantity(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = inventory.ParseQuantity("-3")
	require.NoError(t, err)
	assert.Equal(t, -3, n)

	for _, bad := range []string{"ten", "", "1.5", "1e3"} {
		_, err := inventory.ParseQuantity(bad)
		assert.ErrorIs(t, err, inventory.ErrInvalidQuantity, bad)
	}
}

func TestValidateItem(t *testing.T) {
	assert.NoError(t, inventory.ValidateItem("apple"))
	assert.ErrorIs(t, inventory.ValidateItem(""), inventory.ErrInvalidItem)
}

func TestReasonFromError(t *testing.T) {
	assert.Equal(t, "", inventory.ReasonFromError(nil))
	assert.Equal(t, inventory.FailureReasonInvalidInput, inventory.ReasonFromError(inventory.ErrInvalidItem))
	assert.Equal(t, inventory.FailureReasonNotInStock,
		inventory.ReasonFromError(fmt.Errorf("remove: %w", inventory.ErrNotInStock)))
	assert.Equal(t, inventory.FailureReasonNotFound, inventory.ReasonFromError(inventory.ErrSnapshotNotFound))
	assert.Equal(t, inventory.FailureReasonMalformed, inventory.ReasonFromError(inventory.ErrSnapshotMalformed))
	assert.Equal(t, inventory.FailureReasonSnapshotDamaged, inventory.ReasonFromError(inventory.ErrSnapshotDamaged))
	assert.Equal(t, inventory.FailureReasonPersistenceError, inventory.ReasonFromError(errors.New("disk on fire")))
}

func TestJournal(t *testing.T) {
	var j inventory.Journal
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	j.Append(at, "Added 10 of apple")

	require.Equal(t, 1, j.Len())
	assert.Equal(t, []string{"2026-10-18T09:30:00Z: Added 10 of apple"}, j.Lines())

	entries := j.Entries()
	entries[0].Message = "mutated"
	assert.Equal(t, "Added 10 of apple", j.Entries()[0].Message)

	var nilJournal *inventory.Journal
	assert.Equal(t, 0, nilJournal.Len())
	assert.Empty(t, nilJournal.Lines())
}
