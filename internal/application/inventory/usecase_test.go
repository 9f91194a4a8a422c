package inventory_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appinv "github.com/Zhima-Mochi/inventory-tracker/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
)

type fixture struct {
	svc  *appinv.Service
	repo *memory.InventoryRepository
	logs *observer.ObservedLogs
	reg  *prometheus.Registry
	path string
}

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, store dominv.SnapshotStore, items ...dominv.Item) *fixture {
	t.Helper()
	return newFixtureWith(t, store, nil, items...)
}

func newFixtureWith(t *testing.T, store dominv.SnapshotStore, opts []appinv.Option, items ...dominv.Item) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.json")
	if store == nil {
		store = jsonfile.NewFileStore(path)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	reg := prometheus.NewRegistry()
	tel := infraobs.NewPrometheus(reg, nil, zaplogger.Wrap(zap.New(core)))

	repo := memory.NewInventoryRepository()
	repo.Replace(context.Background(), items)

	opts = append(opts, appinv.WithClock(func() time.Time { return fixedNow }))
	svc := appinv.NewService(repo, store, tel, opts...)
	return &fixture{svc: svc, repo: repo, logs: logs, reg: reg, path: path}
}

func (f *fixture) messages(level zapcore.Level) []string {
	var out []string
	for _, e := range f.logs.FilterLevelExact(level).All() {
		out = append(out, e.Message)
	}
	return out
}

type failingStore struct{ err error }

func (s failingStore) Load(context.Context) (dominv.Snapshot, error) { return nil, s.err }
func (s failingStore) Save(context.Context, dominv.Snapshot) error   { return s.err }
func (s failingStore) Location() string                             { return "failing" }

func TestAddItem_FromEmptyYieldsQuantity(t *testing.T) {
	ctx := context.Background()
	for _, qty := range []int{1, 5, 10, 1000} {
		f := newFixture(t, nil)
		res := f.svc.AddItem(ctx, "apple", qty, nil)

		require.True(t, res.Applied)
		assert.Equal(t, qty, res.Quantity)
		assert.Equal(t, qty, f.svc.Quantity(ctx, "apple"))
	}
}

func TestAddItem_AppendsToCallerJournalAndLogsInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	journal := &dominv.Journal{}

	f.svc.AddItem(ctx, "apple", 10, journal)
	f.svc.AddItem(ctx, "banana", 5, journal)

	assert.Equal(t, []string{
		"2026-10-18T12:00:00Z: Added 10 of apple",
		"2026-10-18T12:00:00Z: Added 5 of banana",
	}, journal.Lines())
	assert.Equal(t, []string{"Added 10 of apple", "Added 5 of banana"}, f.messages(zapcore.InfoLevel))
}

func TestAddItem_OmittedJournalsAreNotShared(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first := f.svc.AddItem(ctx, "apple", 1, nil)
	second := f.svc.AddItem(ctx, "apple", 2, nil)

	require.NotSame(t, first.Journal, second.Journal)
	assert.Equal(t, 1, first.Journal.Len())
	assert.Equal(t, 1, second.Journal.Len())
	assert.Equal(t, "Added 2 of apple", second.Journal.Entries()[0].Message)
}

func TestAddItem_EmptyNameIsRejectedWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 3})
	journal := &dominv.Journal{}

	res := f.svc.AddItem(ctx, "", 10, journal)

	assert.False(t, res.Applied)
	assert.Equal(t, dominv.FailureReasonInvalidInput, res.Reason)
	assert.Equal(t, 0, journal.Len())
	assert.Equal(t, dominv.Snapshot{{Name: "apple", Quantity: 3}}, f.svc.Items(ctx))
	assert.Equal(t, []string{"Invalid item or quantity provided."}, f.messages(zapcore.ErrorLevel))
}

func TestAddItemText(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong types leave inventory unchanged", func(t *testing.T) {
		f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 3})
		res := f.svc.AddItemText(ctx, "123", "ten", nil)

		assert.False(t, res.Applied)
		assert.Equal(t, dominv.FailureReasonInvalidInput, res.Reason)
		assert.Equal(t, 0, f.svc.Quantity(ctx, "123"))
		assert.Equal(t, dominv.Snapshot{{Name: "apple", Quantity: 3}}, f.svc.Items(ctx))
		assert.Len(t, f.messages(zapcore.ErrorLevel), 1)
	})

	t.Run("numeric text is accepted", func(t *testing.T) {
		f := newFixture(t, nil)
		res := f.svc.AddItemText(ctx, "pear", "4", nil)
		require.True(t, res.Applied)
		assert.Equal(t, 4, f.svc.Quantity(ctx, "pear"))
	})
}

func TestRejectAdd(t *testing.T) {
	f := newFixture(t, nil)
	res := f.svc.RejectAdd(context.Background(), errors.New("item is not a string"))

	assert.False(t, res.Applied)
	assert.Equal(t, 0, f.repo.Len(context.Background()))
	assert.Len(t, f.messages(zapcore.ErrorLevel), 1)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("exact stock deletes the key", func(t *testing.T) {
		f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 3})
		res := f.svc.RemoveItem(ctx, "apple", 3)

		require.True(t, res.Applied)
		assert.Equal(t, 0, f.svc.Quantity(ctx, "apple"))
		assert.Empty(t, f.svc.Items(ctx))

		var report bytes.Buffer
		f.svc.Report(ctx, &report)
		assert.NotContains(t, report.String(), "apple")
		assert.Equal(t, []string{"Removed 3 of apple"}, f.messages(zapcore.InfoLevel))
	})

	t.Run("partial decrements", func(t *testing.T) {
		f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 10})
		res := f.svc.RemoveItem(ctx, "apple", 3)

		require.True(t, res.Applied)
		assert.Equal(t, 7, res.Quantity)
		assert.Equal(t, 7, f.svc.Quantity(ctx, "apple"))
	})

	t.Run("missing item is a warning and a no-op", func(t *testing.T) {
		f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 10})
		res := f.svc.RemoveItem(ctx, "orange", 1)

		assert.False(t, res.Applied)
		assert.Equal(t, dominv.FailureReasonNotInStock, res.Reason)
		assert.Equal(t, dominv.Snapshot{{Name: "apple", Quantity: 10}}, f.svc.Items(ctx))
		assert.Equal(t, []string{"Attempted to remove 'orange', which is not in stock."}, f.messages(zapcore.WarnLevel))
		assert.Empty(t, f.messages(zapcore.ErrorLevel))
	})
}

func TestLowStock(t *testing.T) {
	f := newFixture(t, nil,
		dominv.Item{Name: "apple", Quantity: 7},
		dominv.Item{Name: "banana", Quantity: 3},
		dominv.Item{Name: "kiwi", Quantity: 5},
	)
	assert.Equal(t, []string{"banana"}, f.svc.LowStock(context.Background(), dominv.DefaultLowStockThreshold))
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	items := dominv.Snapshot{
		{Name: "kiwi", Quantity: 5},
		{Name: "apple", Quantity: 7},
		{Name: "banana", Quantity: -2},
	}
	f := newFixture(t, nil, items...)

	require.True(t, f.svc.Save(ctx).Applied)

	f.repo.Replace(ctx, dominv.Snapshot{{Name: "stale", Quantity: 1}})
	res := f.svc.Load(ctx)

	require.True(t, res.Applied)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, items, f.svc.Items(ctx))
	assert.Contains(t, f.messages(zapcore.InfoLevel), "Inventory data saved successfully.")
	assert.Contains(t, f.messages(zapcore.InfoLevel), "Inventory data loaded successfully.")
}

func TestLoad_FailuresResetToEmpty(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		content *string
		reason  string
	}{
		{name: "missing file", content: nil, reason: dominv.FailureReasonNotFound},
		{name: "not json", content: ptr("{{{"), reason: dominv.FailureReasonMalformed},
		{name: "non-integer value", content: ptr(`{"apple": "ten"}`), reason: dominv.FailureReasonMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil, dominv.Item{Name: "stale", Quantity: 1})
			if tc.content != nil {
				require.NoError(t, os.WriteFile(f.path, []byte(*tc.content), 0o644))
			}

			res := f.svc.Load(ctx)

			assert.False(t, res.Applied)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Empty(t, f.svc.Items(ctx))

			errs := f.logs.FilterLevelExact(zapcore.ErrorLevel).All()
			require.Len(t, errs, 1)
			assert.Equal(t, "Failed to load data", errs[0].Message)
			assert.Equal(t, tc.reason, errs[0].ContextMap()["reason"])
		})
	}
}

func TestSave_FailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingStore{err: errors.New("permission denied")}, dominv.Item{Name: "apple", Quantity: 2})

	res := f.svc.Save(ctx)

	assert.False(t, res.Applied)
	assert.Equal(t, dominv.FailureReasonPersistenceError, res.Reason)
	assert.Equal(t, dominv.Snapshot{{Name: "apple", Quantity: 2}}, f.svc.Items(ctx))
	assert.Equal(t, []string{"Failed to save data"}, f.messages(zapcore.ErrorLevel))
}

func TestReport_Format(t *testing.T) {
	f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 7}, dominv.Item{Name: "banana", Quantity: 5})

	var buf bytes.Buffer
	f.svc.Report(context.Background(), &buf)

	assert.Equal(t, "\n--- Items Report ---\napple -> 7\nbanana -> 5\n--------------------\n\n", buf.String())
}

func TestOperationsAreCounted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.svc.AddItem(ctx, "apple", 1, nil)
	f.svc.AddItem(ctx, "", 1, nil)
	f.svc.RemoveItem(ctx, "orange", 1)

	n, err := testutil.GatherAndCount(f.reg, string(observability.MOperationRequests))
	require.NoError(t, err)
	assert.Equal(t, 3, n) // add/success, add/rejected, remove/rejected

	n, err = testutil.GatherAndCount(f.reg, string(observability.MInventoryItems))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewService_NilObservability(t *testing.T) {
	svc := appinv.NewService(memory.NewInventoryRepository(), jsonfile.NewFileStore(filepath.Join(t.TempDir(), "x.json")), nil)
	assert.True(t, svc.AddItem(context.Background(), "apple", 1, nil).Applied)
}

func TestDamagedSnapshotGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWith(t, nil, []appinv.Option{appinv.WithDamagedSnapshotGuard()})
	require.NoError(t, os.WriteFile(f.path, []byte("{broken"), 0o644))

	require.False(t, f.svc.Load(ctx).Applied)
	assert.True(t, f.svc.SnapshotDamaged())

	f.svc.AddItem(ctx, "apple", 1, nil)
	res := f.svc.Save(ctx)
	assert.False(t, res.Applied)
	assert.Equal(t, dominv.FailureReasonSnapshotDamaged, res.Reason)
	assert.Contains(t, f.messages(zapcore.WarnLevel), "inventory_save_skipped")

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))

	require.NoError(t, os.WriteFile(f.path, []byte(`{"kiwi": 1}`), 0o644))
	require.True(t, f.svc.Load(ctx).Applied)
	assert.False(t, f.svc.SnapshotDamaged())
	assert.True(t, f.svc.Save(ctx).Applied)
}

func TestDamagedSnapshotGuard_MissingFileDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWith(t, nil, []appinv.Option{appinv.WithDamagedSnapshotGuard()})

	assert.Equal(t, dominv.FailureReasonNotFound, f.svc.Load(ctx).Reason)
	assert.False(t, f.svc.SnapshotDamaged())
	assert.True(t, f.svc.Save(ctx).Applied)
}

func TestSave_WithoutGuardOverwritesDamagedSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(f.path, []byte("{broken"), 0o644))

	f.svc.Load(ctx)
	require.True(t, f.svc.Save(ctx).Applied)

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestItemsIsCounted(t *testing.T) {
	f := newFixture(t, nil, dominv.Item{Name: "apple", Quantity: 1})
	f.svc.Items(context.Background())

	n, err := testutil.GatherAndCount(f.reg, string(observability.MOperationDuration))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func ptr(s string) *string { return &s }
