package inventory

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	dominv "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService = "inventory-service"
	spanPrefix       = "UC."

	OpAdd      = "inventory.add"
	OpRemove   = "inventory.remove"
	OpQuantity = "inventory.quantity"
	OpLowStock = "inventory.low_stock"
	OpItems    = "inventory.items"
	OpLoad     = "inventory.load"
	OpSave     = "inventory.save"
	OpReport   = "inventory.report"

	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Result exposes the outcome of a mutating operation. Failures of the
// handled kinds are reported here and in the diagnostics, never as errors.
type Result struct {
	Applied bool
	Reason  string
	// Quantity is the stock left after an add or remove, or the item count after a load.
	Quantity int
	// Journal is the journal the add appended to; a fresh one when the caller passed nil.
	Journal *dominv.Journal
}

// Service runs the inventory operations on one repository and persists
// through one snapshot store.
type Service struct {
	repo         dominv.Repository
	store        dominv.SnapshotStore
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	itemsGauge   observability.Gauge
	now          func() time.Time

	guardDamaged bool
	// damaged is set while the last load found a snapshot it could not read.
	damaged      atomic.Bool
}

type Option func(*Service)

// WithDamagedSnapshotGuard makes Save refuse to run after a load that failed
// for any reason other than a missing snapshot, until a later load succeeds.
func WithDamagedSnapshotGuard() Option {
	return func(s *Service) {
		s.guardDamaged = true
	}
}

// WithClock overrides the journal timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo dominv.Repository, store dominv.SnapshotStore, tel observability.Observability, opts ...Option) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	metricsProvider := tel.Metrics()

	s := &Service{
		repo:         repo,
		store:        store,
		log:          tel.Logger().With(observability.F("service", inventoryService)),
		tracer:       tel.Tracer(),
		reqCounter:   metricsProvider.Counter(observability.MOperationRequests),
		durHistogram: metricsProvider.Histogram(observability.MOperationDuration),
		itemsGauge:   metricsProvider.Gauge(observability.MInventoryItems),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem adds quantity to item. A nil journal gets a fresh one scoped to this call.
func (s *Service) AddItem(ctx context.Context, item string, quantity int, journal *dominv.Journal) *Result {
	ctx, c := s.begin(ctx, OpAdd,
		attribute.String("item.name", item),
		attribute.Int("item.quantity", quantity),
	)
	if journal == nil {
		journal = &dominv.Journal{}
	}
	res := &Result{Journal: journal}

	if err := dominv.ValidateItem(item); err != nil {
		s.rejectInvalid(c, res, err)
		return res
	}

	total, err := s.repo.Add(ctx, item, quantity)
	if err != nil {
		s.rejectInvalid(c, res, err)
		return res
	}

	msg := fmt.Sprintf("Added %d of %s", quantity, item)
	journal.Append(s.now(), msg)
	c.logger.Info(msg,
		observability.F("item", item),
		observability.F("quantity", quantity),
		observability.F("stock", total),
	)

	res.Applied, res.Quantity = true, total
	s.refreshGauge(ctx)
	c.end(outcomeSuccess, "", nil)
	return res
}

// AddItemText is AddItem for untyped input such as command-line arguments.
func (s *Service) AddItemText(ctx context.Context, item, quantity string, journal *dominv.Journal) *Result {
	qty, err := dominv.ParseQuantity(quantity)
	if err != nil {
		_, c := s.begin(ctx, OpAdd,
			attribute.String("item.name", item),
			attribute.String("item.quantity_raw", quantity),
		)
		if journal == nil {
			journal = &dominv.Journal{}
		}
		res := &Result{Journal: journal}
		s.rejectInvalid(c, res, fmt.Errorf("quantity %q: %w", quantity, err))
		return res
	}
	return s.AddItem(ctx, item, qty, journal)
}

// RejectAdd records an add whose input could not even be typed, e.g. a JSON
// body where the item is a number. The inventory is not touched.
func (s *Service) RejectAdd(ctx context.Context, cause error) *Result {
	_, c := s.begin(ctx, OpAdd)
	res := &Result{Journal: &dominv.Journal{}}
	s.rejectInvalid(c, res, cause)
	return res
}

func (s *Service) rejectInvalid(c *call, res *Result, err error) {
	res.Reason = dominv.FailureReasonInvalidInput
	c.logger.Error("Invalid item or quantity provided.",
		observability.F("reason", res.Reason),
		observability.F("error", err),
	)
	c.end(outcomeRejected, res.Reason, err)
}

// RemoveItem subtracts quantity from item, clearing the entry when the stock
// does not strictly exceed quantity. A missing item is a warning, not an error.
func (s *Service) RemoveItem(ctx context.Context, item string, quantity int) *Result {
	ctx, c := s.begin(ctx, OpRemove,
		attribute.String("item.name", item),
		attribute.Int("item.quantity", quantity),
	)
	res := &Result{}

	outcome, left, err := s.repo.Remove(ctx, item, quantity)
	if err != nil {
		res.Reason = dominv.ReasonFromError(err)
		if res.Reason == dominv.FailureReasonNotInStock {
			c.logger.Warn(fmt.Sprintf("Attempted to remove '%s', which is not in stock.", item),
				observability.F("item", item),
				observability.F("reason", res.Reason),
			)
			c.end(outcomeRejected, res.Reason, nil)
			return res
		}
		c.logger.Error("inventory_remove_failed", observability.F("error", err))
		c.end(outcomeError, res.Reason, err)
		return res
	}

	res.Applied, res.Quantity = true, left
	c.logger.Info(fmt.Sprintf("Removed %d of %s", quantity, item),
		observability.F("item", item),
		observability.F("quantity", quantity),
		observability.F("result", outcome.String()),
	)
	s.refreshGauge(ctx)
	c.end(outcomeSuccess, "", nil)
	return res
}

// Quantity returns the stock of item, 0 when absent.
func (s *Service) Quantity(ctx context.Context, item string) int {
	ctx, c := s.begin(ctx, OpQuantity, attribute.String("item.name", item))
	defer c.end(outcomeSuccess, "", nil)
	return s.repo.Quantity(ctx, item)
}

// LowStock returns the items whose quantity is strictly below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) []string {
	ctx, c := s.begin(ctx, OpLowStock, attribute.Int("threshold", threshold))
	defer c.end(outcomeSuccess, "", nil)
	return s.repo.LowStock(ctx, threshold)
}

// Items returns the current content in iteration order.
func (s *Service) Items(ctx context.Context) dominv.Snapshot {
	ctx, c := s.begin(ctx, OpItems)
	defer c.end(outcomeSuccess, "", nil)
	return s.repo.Snapshot(ctx)
}

// SnapshotDamaged reports whether saves are currently blocked by the guard.
func (s *Service) SnapshotDamaged() bool {
	return s.damaged.Load()
}

// Load replaces the whole inventory with the stored snapshot. Any failure
// leaves an empty inventory.
func (s *Service) Load(ctx context.Context) *Result {
	ctx, c := s.begin(ctx, OpLoad, attribute.String("snapshot.location", s.store.Location()))
	res := &Result{}

	snap, err := s.store.Load(ctx)
	if err != nil {
		s.repo.Replace(ctx, nil)
		s.refreshGauge(ctx)
		res.Reason = dominv.ReasonFromError(err)
		s.damaged.Store(s.guardDamaged && res.Reason != dominv.FailureReasonNotFound)
		c.logger.Error("Failed to load data",
			observability.F("location", s.store.Location()),
			observability.F("reason", res.Reason),
			observability.F("error", err),
		)
		c.end(outcomeError, res.Reason, err)
		return res
	}

	s.repo.Replace(ctx, snap)
	s.refreshGauge(ctx)
	s.damaged.Store(false)
	res.Applied, res.Quantity = true, s.repo.Len(ctx)
	c.logger.Info("Inventory data loaded successfully.",
		observability.F("location", s.store.Location()),
		observability.F("items", res.Quantity),
	)
	c.end(outcomeSuccess, "", nil)
	return res
}

// Save writes the current inventory to the snapshot store. The in-memory
// inventory is unaffected whatever happens.
func (s *Service) Save(ctx context.Context) *Result {
	ctx, c := s.begin(ctx, OpSave, attribute.String("snapshot.location", s.store.Location()))
	res := &Result{}

	if s.damaged.Load() {
		err := fmt.Errorf("save %s: %w", s.store.Location(), dominv.ErrSnapshotDamaged)
		res.Reason = dominv.ReasonFromError(err)
		c.logger.Warn("inventory_save_skipped",
			observability.F("location", s.store.Location()),
			observability.F("reason", res.Reason),
		)
		c.end(outcomeRejected, res.Reason, err)
		return res
	}

	snap := s.repo.Snapshot(ctx)
	if err := s.store.Save(ctx, snap); err != nil {
		res.Reason = dominv.ReasonFromError(err)
		c.logger.Error("Failed to save data",
			observability.F("location", s.store.Location()),
			observability.F("reason", res.Reason),
			observability.F("error", err),
		)
		c.end(outcomeError, res.Reason, err)
		return res
	}

	res.Applied, res.Quantity = true, len(snap)
	c.logger.Info("Inventory data saved successfully.",
		observability.F("location", s.store.Location()),
		observability.F("items", len(snap)),
	)
	c.end(outcomeSuccess, "", nil)
	return res
}

// Report writes the human-readable items report to w.
func (s *Service) Report(ctx context.Context, w io.Writer) {
	ctx, c := s.begin(ctx, OpReport)

	err := WriteReport(w, s.repo.Snapshot(ctx))
	if err != nil {
		c.logger.Error("inventory_report_failed", observability.F("error", err))
		c.end(outcomeError, dominv.FailureReasonPersistenceError, err)
		return
	}
	c.end(outcomeSuccess, "", nil)
}

func (s *Service) refreshGauge(ctx context.Context) {
	if s.itemsGauge != nil {
		s.itemsGauge.Set(float64(s.repo.Len(ctx)))
	}
}

// call carries the span, logger and timing of one operation.
type call struct {
	s         *Service
	span      trace.Span
	logger    observability.Logger
	operation string
	start     time.Time
}

func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, *call) {
	attrs = append(attrs, attribute.String("use_case", operation))
	ctx, span := s.tracer.Start(ctx, spanPrefix+operation, attrs...)

	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", operation))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	return ctx, &call{
		s:         s,
		span:      span,
		logger:    logger,
		operation: operation,
		start:     time.Now(),
	}
}

func (c *call) end(outcome, reason string, err error) {
	if c.span != nil {
		if err != nil && outcome == outcomeError {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, reason)
		} else {
			c.span.SetStatus(codes.Ok, outcome)
		}
		c.span.End()
	}

	latency := time.Since(c.start).Seconds()
	if c.s.reqCounter != nil {
		c.s.reqCounter.Add(1,
			observability.L("operation", c.operation),
			observability.L("outcome", outcome),
		)
	}
	if c.s.durHistogram != nil {
		c.s.durHistogram.Observe(latency,
			observability.L("operation", c.operation),
		)
	}

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("latency_seconds", latency),
	}
	if reason != "" {
		fields = append(fields, observability.F("failure_reason", reason))
	}
	c.logger.Debug("use_case_done", fields...)
}
