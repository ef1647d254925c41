// Package adapter defines the uniform ad-server interface of spec.md §4.13
// and provides the mock implementation that is authoritative for tests and
// testing-flagged environments. Grounded on the teacher's translator
// package shape (one Go interface hiding several backend-specific
// payloads) generalized from ADK/agent translation to ad-server dispatch.
package adapter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LineItem is one ad-server-side line item created for a package.
type LineItem struct {
	PackageID  string `json:"package_id"`
	LineItemID string `json:"line_item_id"`
	Status     string `json:"status"`
}

// CreateMediaBuyInput carries everything an adapter needs to create a buy.
// ImplementationConfig is populated by the caller from the resolved
// InventoryProfile (spec.md §4.5 step 2) — adapters never resolve profiles
// themselves.
type CreateMediaBuyInput struct {
	MediaBuyID           string
	Packages             []PackageInput
	StartTime            time.Time
	EndTime              time.Time
	ImplementationConfig map[string]any
	TestingContext       map[string]any
}

// PackageInput is one package within a create/update request.
type PackageInput struct {
	BuyerRef         string
	ProductID        string
	PricingOptionID  string
	Budget           float64
	TargetingOverlay map[string]any
	CreativeIDs      []string
}

// CreateMediaBuyOutput is the adapter's result for a successful create.
type CreateMediaBuyOutput struct {
	MediaBuyID string
	Status     string // "active" or "pending_activation", adapter's choice
	LineItems  []LineItem
}

// UpdateMediaBuyInput carries a partial update; nil fields are left alone.
type UpdateMediaBuyInput struct {
	MediaBuyID string
	Paused     *bool
	StartTime  *time.Time
	EndTime    *time.Time
	Budget     *float64
	Packages   []PackageInput
}

// UpdateMediaBuySuccess reports which packages were actually touched.
type UpdateMediaBuySuccess struct {
	AffectedPackageIDs []string
}

// PackageDelivery is per-package delivery within a GetDelivery response.
type PackageDelivery struct {
	PackageID  string  `json:"package_id"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	Spend       float64 `json:"spend"`
}

// DeliveryTotals is the aggregate of a GetDelivery response.
type DeliveryTotals struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
}

// GetDeliveryOutput is one media buy's delivery report.
type GetDeliveryOutput struct {
	MediaBuyID string
	Totals     DeliveryTotals
	Packages   []PackageDelivery
}

// CreativeSyncInput is one creative handed to SyncCreatives.
type CreativeSyncInput struct {
	CreativeID string
	FormatID   string
	Payload    map[string]any
}

// CreativeSyncResult is the adapter's per-creative outcome.
type CreativeSyncResult struct {
	CreativeID string
	Status     string // e.g. "approved", "pending_review", "rejected"
	Error      string
}

// AdServerError is a domain-level adapter failure (spec.md §7
// adapter_error), distinct from a Go error returned for infra faults.
type AdServerError struct {
	Code      string
	Message   string
	PackageID string
}

func (e *AdServerError) Error() string {
	return e.Code + ": " + e.Message
}

// AdServer is the uniform interface hiding GAM/Kevel/mock specifics.
// Implementations return (*X, nil) on success, (nil, *AdServerError) on a
// domain-level rejection, and (nil, err) only for unexpected/infra faults.
type AdServer interface {
	CreateMediaBuy(ctx context.Context, cfg map[string]any, in CreateMediaBuyInput) (*CreateMediaBuyOutput, error)
	UpdateMediaBuy(ctx context.Context, cfg map[string]any, in UpdateMediaBuyInput) (*UpdateMediaBuySuccess, error)
	GetDelivery(ctx context.Context, cfg map[string]any, mediaBuyID string, start, end time.Time) (*GetDeliveryOutput, error)
	SyncCreatives(ctx context.Context, cfg map[string]any, creatives []CreativeSyncInput) ([]CreativeSyncResult, error)
}

// Registry resolves a tenant's configured adapter by kind.
type Registry struct {
	adapters map[string]AdServer
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]AdServer)}
}

func (r *Registry) Register(kind string, a AdServer) {
	r.adapters[kind] = a
}

func (r *Registry) Resolve(kind string) (AdServer, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// tracer is the adcp-adapter tracer (spec.md §2's domain stack wires
// go.opentelemetry.io/otel specifically to instrument outbound ad-server
// calls). With no SDK/exporter configured it is a safe no-op, same as the
// teacher's telemetry package when OTEL_TRACING_ENABLED is unset.
var tracer = otel.Tracer("adcp-adapter")

// traced wraps an AdServer so every call becomes a span named
// "adapter.<kind>.<method>", recording success/failure per spec.md §7's
// adapter_error/internal_error distinction.
type traced struct {
	kind string
	next AdServer
}

// Traced instruments an AdServer with tracing spans, grounded on the
// teacher's telemetry.InstrumentedCommandExecution pattern (span + status +
// attributes around one outbound call).
func Traced(kind string, next AdServer) AdServer {
	return &traced{kind: kind, next: next}
}

func (t *traced) startSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "adapter."+t.kind+"."+method)
	span.SetAttributes(attribute.String("adcp.adapter.kind", t.kind))
	return ctx, span
}

func (t *traced) finishSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *traced) CreateMediaBuy(ctx context.Context, cfg map[string]any, in CreateMediaBuyInput) (*CreateMediaBuyOutput, error) {
	ctx, span := t.startSpan(ctx, "create_media_buy")
	out, err := t.next.CreateMediaBuy(ctx, cfg, in)
	t.finishSpan(span, err)
	return out, err
}

func (t *traced) UpdateMediaBuy(ctx context.Context, cfg map[string]any, in UpdateMediaBuyInput) (*UpdateMediaBuySuccess, error) {
	ctx, span := t.startSpan(ctx, "update_media_buy")
	out, err := t.next.UpdateMediaBuy(ctx, cfg, in)
	t.finishSpan(span, err)
	return out, err
}

func (t *traced) GetDelivery(ctx context.Context, cfg map[string]any, mediaBuyID string, start, end time.Time) (*GetDeliveryOutput, error) {
	ctx, span := t.startSpan(ctx, "get_delivery")
	out, err := t.next.GetDelivery(ctx, cfg, mediaBuyID, start, end)
	t.finishSpan(span, err)
	return out, err
}

func (t *traced) SyncCreatives(ctx context.Context, cfg map[string]any, creatives []CreativeSyncInput) ([]CreativeSyncResult, error) {
	ctx, span := t.startSpan(ctx, "sync_creatives")
	out, err := t.next.SyncCreatives(ctx, cfg, creatives)
	t.finishSpan(span, err)
	return out, err
}
