// Package skills implements the nine AdCP skills of spec.md §4.4-§4.9 as
// dispatch.Handler functions. Grounded on the teacher's internal/httpserver
// handlers package: one file per operation, validation up front, a single
// persistence round trip per operation, explicit error returns rather than
// panics.
package skills

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/adcp-project/sales-agent/internal/adapter"
	"github.com/adcp-project/sales-agent/internal/dispatch"
	"github.com/adcp-project/sales-agent/internal/task"
)

// Service holds the dependencies every skill handler needs: the database,
// the adapter registry, and the task/webhook service that create_media_buy
// and sync_creatives hand completed work off to.
type Service struct {
	gdb      *gorm.DB
	adapters *adapter.Registry
	tasks    *task.Service
}

func NewService(gdb *gorm.DB, adapters *adapter.Registry, tasks *task.Service) *Service {
	return &Service{gdb: gdb, adapters: adapters, tasks: tasks}
}

// RegisterAll binds every skill to its name on d, the single wiring point
// used by both transports.
func (s *Service) RegisterAll(d *dispatch.Dispatcher) {
	d.Register("get_products", s.GetProducts)
	d.Register("create_media_buy", s.CreateMediaBuy)
	d.Register("update_media_buy", s.UpdateMediaBuy)
	d.Register("get_media_buy_delivery", s.GetMediaBuyDelivery)
	d.Register("update_performance_index", s.UpdatePerformanceIndex)
	d.Register("sync_creatives", s.SyncCreatives)
	d.Register("list_creatives", s.ListCreatives)
	d.Register("list_creative_formats", s.ListCreativeFormats)
	d.Register("list_authorized_properties", s.ListAuthorizedProperties)
}

// --- small param helpers shared across skill files ---

func paramString(params map[string]any, key string) (string, bool) {
	v, ok := params[key].(string)
	return v, ok && v != ""
}

func paramObject(params map[string]any, key string) (map[string]any, bool) {
	v, ok := params[key].(map[string]any)
	return v, ok
}

func paramStringSlice(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func paramBool(params map[string]any, key string) (bool, bool) {
	v, ok := params[key].(bool)
	return v, ok
}

func invalidParams(tc *dispatch.ToolContext, message string) *dispatch.TransportError {
	return dispatch.NewTransportError(dispatch.ErrInvalidParams, message, tc.TenantID, "")
}

func notFound(tc *dispatch.ToolContext, message string) *dispatch.TransportError {
	return dispatch.NewTransportError(dispatch.ErrNotFound, message, tc.TenantID, "")
}

func permissionDenied(tc *dispatch.ToolContext, message string) *dispatch.TransportError {
	return dispatch.NewTransportError(dispatch.ErrPermissionDenied, message, tc.TenantID, "")
}

func internalError(tc *dispatch.ToolContext, err error) *dispatch.TransportError {
	return dispatch.NewTransportError(dispatch.ErrInternalError, err.Error(), tc.TenantID, "")
}

// parseFlightTime accepts "asap" (resolved to now) or an RFC-3339 timestamp,
// per spec.md §4.5's start_time contract.
func parseFlightTime(value string) (time.Time, error) {
	if value == "asap" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}

func requestContext(ctx context.Context, tc *dispatch.ToolContext) context.Context {
	return ctx
}

func errAdapterNotConfigured(kind string) error {
	return fmt.Errorf("no adapter registered for kind %q", kind)
}
