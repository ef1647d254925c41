package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/adcp-project/sales-agent/internal/principal"
	"github.com/adcp-project/sales-agent/internal/tenant"
)

// discoverySkills is the fixed, module-level allow-list of skills that may
// execute without a principal (spec.md §4.3). Nothing grows this set at
// runtime — it is intentionally not configuration.
var discoverySkills = map[string]bool{
	"list_creative_formats":      true,
	"list_authorized_properties": true,
	"get_products":               true,
}

// IsDiscoverySkill reports whether skillName may run without authentication.
func IsDiscoverySkill(skillName string) bool {
	return discoverySkills[skillName]
}

// ToolContext is passed to every skill handler, carrying the fields
// spec.md §4.3 names explicitly.
type ToolContext struct {
	ContextID        string
	TenantID         string
	PrincipalID      string
	ToolName         string
	RequestTimestamp time.Time
	Metadata         map[string]any
	TestingContext   map[string]any
}

// Result is the structured outcome of a skill invocation: domain data plus
// any per-item domain errors. A TransportError, by contrast, is returned
// separately and never reaches this shape.
type Result struct {
	Data   map[string]any
	Errors []DomainError
}

// Handler is one skill's business logic. Domain failures are returned via
// Result.Errors, never via the error return, which is reserved for
// unexpected/internal faults that the dispatcher will wrap as
// ErrInternalError.
type Handler func(ctx context.Context, tc *ToolContext, params map[string]any) (*Result, error)

// Recorder observes dispatch outcomes for metrics export. internal/obs
// implements this; Dispatcher works with a nil Recorder so tests never need
// one.
type Recorder interface {
	ObserveCall(skill, transport string)
	ObserveError(skill, kind string)
}

// Dispatcher is the single function of spec.md §4.3: it takes
// (skill_name, parameters, principal?, tenant, transport) and returns a
// structured result.
type Dispatcher struct {
	handlers map[string]Handler
	recorder Recorder
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// SetRecorder attaches a metrics Recorder; cmd/server calls this once at
// startup with an internal/obs.Metrics instance.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// Register binds a skill name to its Handler. Called once per skill at
// startup from internal/skills.
func (d *Dispatcher) Register(skillName string, h Handler) {
	d.handlers[skillName] = h
}

// Dispatch is the entry point every transport (MCP, A2A) funnels through.
// authErr is whatever principal.Authenticator.Authenticate returned for this
// request (nil if no credential was presented at all, or if it already
// resolved to ident); a non-nil *principal.ErrInvalidAuthToken distinguishes
// "presented a credential that didn't resolve" from "presented nothing",
// per spec.md §4.1's invalid_auth_token/missing_authentication split.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	contextID string,
	skillName string,
	rawParams map[string]any,
	ident *principal.Identity,
	authErr error,
	tenantCtx *tenant.Context,
	transport string,
) (*Result, *TransportError) {
	if d.recorder != nil {
		d.recorder.ObserveCall(skillName, transport)
	}

	handler, ok := d.handlers[skillName]
	if !ok {
		return nil, d.fail(NewTransportError(ErrMethodNotFound, fmt.Sprintf("unknown skill %q", skillName), tenantIDOf(tenantCtx), ""))
	}

	if ident == nil {
		if invalid, ok := authErr.(*principal.ErrInvalidAuthToken); ok {
			return nil, d.fail(NewTransportError(ErrInvalidAuthToken, invalid.Error(), tenantIDOf(tenantCtx), ""))
		}
		if !IsDiscoverySkill(skillName) {
			return nil, d.fail(NewTransportError(ErrMissingAuthentication, fmt.Sprintf("skill %q requires authentication", skillName), tenantIDOf(tenantCtx), ""))
		}
	}

	params := NormalizeParams(skillName, rawParams)

	tc := &ToolContext{
		ContextID:        contextID,
		TenantID:         tenantIDOf(tenantCtx),
		ToolName:         skillName,
		RequestTimestamp: time.Now().UTC(),
		Metadata:         map[string]any{"transport": transport},
		TestingContext:   extractTestingContext(params),
	}
	if ident != nil {
		tc.PrincipalID = ident.PrincipalID
		tc.TenantID = ident.TenantID
	}

	result, err := handler(ctx, tc, params)
	if err != nil {
		if te, ok := err.(*TransportError); ok {
			return nil, d.failSkill(skillName, te)
		}
		return nil, d.failSkill(skillName, NewTransportError(ErrInternalError, err.Error(), tc.TenantID, ""))
	}
	return result, nil
}

// fail records a Recorder observation, with an empty skill label, for a
// TransportError that occurred before the skill's handler ran (unknown
// skill, missing or invalid auth).
func (d *Dispatcher) fail(te *TransportError) *TransportError {
	if d.recorder != nil {
		d.recorder.ObserveError("", string(te.Kind))
	}
	return te
}

// failSkill records a Recorder observation for a TransportError attributed
// to a specific, already-resolved skill.
func (d *Dispatcher) failSkill(skillName string, te *TransportError) *TransportError {
	if d.recorder != nil {
		d.recorder.ObserveError(skillName, string(te.Kind))
	}
	return te
}

func tenantIDOf(tc *tenant.Context) string {
	if tc == nil {
		return ""
	}
	return tc.TenantID
}

// extractTestingContext lifts a conventional "testing_context" parameter
// out of params so mock adapters can branch on it without it leaking into
// business-logic validation.
func extractTestingContext(params map[string]any) map[string]any {
	if v, ok := params["testing_context"].(map[string]any); ok {
		return v
	}
	return nil
}

// NormalizeParams applies the equivalences spec.md §4.3 requires before a
// handler ever sees the parameters: A2A's input/parameters wrapper, the
// media_buy_id/media_buy_ids singular-plural pair, and the legacy
// updates.packages wrapper. An "input" or "parameters" wrapper is only
// unwrapped when it is the payload's sole key, and "updates" is only removed
// when it is an object; otherwise those keys pass through unchanged.
func NormalizeParams(skillName string, raw map[string]any) map[string]any {
	params := unwrapEnvelope(raw)

	if single, ok := params["media_buy_id"]; ok {
		if _, hasPlural := params["media_buy_ids"]; !hasPlural {
			params["media_buy_ids"] = []any{single}
		}
		delete(params, "media_buy_id")
	}

	if updates, ok := params["updates"].(map[string]any); ok {
		if packages, ok := updates["packages"]; ok {
			if _, hasTop := params["packages"]; !hasTop {
				params["packages"] = packages
			}
		}
		delete(params, "updates")
	}

	return params
}

// unwrapEnvelope handles A2A's two historical wrapper shapes: a top-level
// "input" object or a top-level "parameters" object. Either, when it is the
// only key of the payload, replaces the outer envelope with its own
// contents; any other payload passes through untouched.
func unwrapEnvelope(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	if inner, ok := raw["input"].(map[string]any); ok && len(raw) == 1 {
		return cloneMap(inner)
	}
	if inner, ok := raw["parameters"].(map[string]any); ok && len(raw) == 1 {
		return cloneMap(inner)
	}
	return cloneMap(raw)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
