package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	appinv "github.com/Zhima-Mochi/inventory-tracker/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	service   *appinv.Service
	threshold int
	log       observability.Logger
	tel       observability.Observability
	validate  *validator.Validate
	limiter   *rate.Limiter
}

type HandlerOption func(*Handler)

// WithRateLimit caps the request rate across all routes. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) HandlerOption {
	return func(h *Handler) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
)

var (
	errInvalidBody = errors.New("request body must be {\"item\": string, \"quantity\": integer}")
	errRateLimited = errors.New("rate limit exceeded")
)

type itemQuantityRequest struct {
	Item     string `validate:"required,max=256"`
	Quantity int
}

func NewHandler(svc *appinv.Service, lowStockThreshold int, logger observability.Logger, tel observability.Observability, opts ...HandlerOption) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	h := &Handler{
		service:   svc,
		threshold: lowStockThreshold,
		log:       baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:       tel,
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → ObservabilityMiddleware (request logger + metrics) → Access log → Handler
	h.muxHandle(mux, http.MethodGet, "/items", h.handleListItems)
	h.muxHandle(mux, http.MethodGet, "/low-stock", h.handleLowStock)
	h.muxHandle(mux, http.MethodPost, "/items/add", h.handleAddItem)
	h.muxHandle(mux, http.MethodPost, "/items/remove", h.handleRemoveItem)
	h.muxHandle(mux, http.MethodGet, "/items/{name}", h.handleGetItem)
	h.muxHandle(mux, http.MethodPost, "/snapshot/save", h.handleSave)
	h.muxHandle(mux, http.MethodPost, "/snapshot/load", h.handleLoad)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if h.limiter != nil && !h.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}

		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), method+" "+route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				h.tel,
			)(
				h.withAccessLog(http.HandlerFunc(handler)),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type itemResponse struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type listResponse struct {
	Items []dominv.Item `json:"items"`
}

type mutationResponse struct {
	Item     string   `json:"item,omitempty"`
	Applied  bool     `json:"applied"`
	Quantity int      `json:"quantity"`
	Reason   string   `json:"reason,omitempty"`
	Journal  []string `json:"journal,omitempty"`
}

type lowStockResponse struct {
	Threshold int      `json:"threshold"`
	Items     []string `json:"items"`
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items := h.service.Items(r.Context())
	if items == nil {
		items = dominv.Snapshot{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	writeJSON(w, http.StatusOK, itemResponse{
		Item:     name,
		Quantity: h.service.Quantity(r.Context(), name),
	})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("threshold: %w", dominv.ErrInvalidQuantity))
			return
		}
		threshold = n
	}
	writeJSON(w, http.StatusOK, lowStockResponse{
		Threshold: threshold,
		Items:     h.service.LowStock(r.Context(), threshold),
	})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	item, qty, err := h.decodeItemQuantity(r)
	if err != nil {
		res := h.service.RejectAdd(r.Context(), err)
		writeJSON(w, http.StatusBadRequest, mutationResponse{Applied: false, Reason: res.Reason})
		return
	}

	res := h.service.AddItem(r.Context(), item, qty, nil)
	writeJSON(w, statusFor(res), mutationResponse{
		Item:     item,
		Applied:  res.Applied,
		Quantity: res.Quantity,
		Reason:   res.Reason,
		Journal:  res.Journal.Lines(),
	})
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	item, qty, err := h.decodeItemQuantity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := h.service.RemoveItem(r.Context(), item, qty)
	writeJSON(w, statusFor(res), mutationResponse{
		Item:     item,
		Applied:  res.Applied,
		Quantity: res.Quantity,
		Reason:   res.Reason,
	})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	res := h.service.Save(r.Context())
	writeJSON(w, statusFor(res), mutationResponse{Applied: res.Applied, Quantity: res.Quantity, Reason: res.Reason})
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	res := h.service.Load(r.Context())
	writeJSON(w, statusFor(res), mutationResponse{Applied: res.Applied, Quantity: res.Quantity, Reason: res.Reason})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request; the parent is extracted
// from the W3C headers.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("inventory.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// decodeItemQuantity accepts only a JSON string item and a JSON integer quantity.
func (h *Handler) decodeItemQuantity(r *http.Request) (string, int, error) {
	var body struct {
		Item     json.RawMessage `json:"item"`
		Quantity json.RawMessage `json:"quantity"`
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		return "", 0, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	var item string
	if err := strictUnmarshal(body.Item, &item); err != nil {
		return "", 0, fmt.Errorf("item: %w", dominv.ErrInvalidItem)
	}
	var qty int
	if err := strictUnmarshal(body.Quantity, &qty); err != nil {
		return "", 0, fmt.Errorf("quantity: %w", dominv.ErrInvalidQuantity)
	}

	req := itemQuantityRequest{Item: item, Quantity: qty}
	if err := h.validate.Struct(req); err != nil {
		return "", 0, fmt.Errorf("item: %w: %v", dominv.ErrInvalidItem, err)
	}
	return req.Item, req.Quantity, nil
}

func strictUnmarshal(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return errInvalidBody
	}
	return json.Unmarshal(raw, dst)
}

func statusFor(res *appinv.Result) int {
	if res.Applied {
		return http.StatusOK
	}
	switch res.Reason {
	case dominv.FailureReasonInvalidInput:
		return http.StatusBadRequest
	case dominv.FailureReasonNotInStock, dominv.FailureReasonNotFound:
		return http.StatusNotFound
	case dominv.FailureReasonMalformed:
		return http.StatusUnprocessableEntity
	case dominv.FailureReasonSnapshotDamaged:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
