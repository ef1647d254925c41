// Package mcp serves the AdCP skills as MCP tools, one registration per
// skill (spec.md §4.10). Every tool accepts an untyped JSON object (Params)
// and declares no per-skill input schema; field checking happens in the
// skill handlers behind the dispatcher.
// Grounded on the teacher's internal/mcp/mcp_handler.go: mcpsdk.NewServer +
// one mcpsdk.AddTool[Input,Output] call per tool, wrapped in a
// StreamableHTTPHandler.
package mcp

import (
	"context"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adcp-project/sales-agent/internal/dispatch"
	"github.com/adcp-project/sales-agent/internal/principal"
	"github.com/adcp-project/sales-agent/internal/tenant"
)

// Params and Output are deliberately untyped JSON objects: the nine AdCP
// skills have heterogeneous, evolving request/response shapes governed by
// the AdCP contract itself, not by this transport. The dispatcher, not the
// MCP layer, is the source of truth for each skill's fields.
type Params map[string]any
type Output map[string]any

// RequestContext resolves the caller's tenant, authenticated principal (nil
// if unauthenticated), the error principal.Authenticator.Authenticate
// produced for that request (if any — a non-nil *principal.ErrInvalidAuthToken
// must reach the dispatcher so a wrong-tenant or unknown token is reported
// as invalid_auth_token rather than missing_authentication, per spec.md
// §4.1, §7), and an A2A-style context id from the inbound HTTP request
// (spec.md §4.10: "the Host subdomain of the MCP endpoint identifies the
// tenant"). cmd/server supplies the concrete implementation, built from
// tenant.Resolver and principal.Authenticator.
type RequestContext func(r *http.Request) (*tenant.Context, *principal.Identity, error, string)

// Handler bridges MCP tool calls into the shared dispatcher. A fresh
// mcpsdk.Server is built per HTTP request so each tool call closes over the
// tenant/principal resolved for that request, since the streamable HTTP
// transport only hands the factory the *http.Request, not individual tool
// invocations.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	requestCtx RequestContext
	http       *mcpsdk.StreamableHTTPHandler
}

// skillDescriptions is the fixed list of AdCP skills registered as MCP
// tools, grounded on spec.md §4.4-4.9.
var skillDescriptions = map[string]string{
	"get_products":                "Discover advertising products matching a brief or brand manifest.",
	"create_media_buy":            "Create a new media buy from one or more packages.",
	"update_media_buy":            "Update an existing media buy by id or buyer_ref.",
	"get_media_buy_delivery":      "Fetch delivery totals and per-package metrics for media buys.",
	"update_performance_index":    "Report buyer-observed performance data for a media buy.",
	"sync_creatives":              "Upsert creatives and optionally assign them to packages.",
	"list_creatives":              "List the caller's creative library with filters and pagination.",
	"list_creative_formats":       "List creative formats accepted by this tenant.",
	"list_authorized_properties":  "List publicly disclosable publisher properties for this tenant.",
}

// NewHandler constructs the MCP transport. Tool registration happens once
// per inbound HTTP request inside the StreamableHTTPHandler factory, since
// that is the only place the tenant-identifying headers are visible.
func NewHandler(d *dispatch.Dispatcher, requestCtx RequestContext) *Handler {
	h := &Handler{dispatcher: d, requestCtx: requestCtx}

	h.http = mcpsdk.NewStreamableHTTPHandler(func(r *http.Request) *mcpsdk.Server {
		return h.newServerForRequest(r)
	}, nil)

	return h
}

// newServerForRequest builds one mcpsdk.Server whose nine tools all close
// over the tenant/principal/context id resolved for this specific HTTP
// request (spec.md §4.10).
func (h *Handler) newServerForRequest(r *http.Request) *mcpsdk.Server {
	tc, ident, authErr, contextID := h.requestCtx(r)

	impl := &mcpsdk.Implementation{Name: "adcp-sales-agent", Version: "1.0.0"}
	server := mcpsdk.NewServer(impl, nil)

	for name, description := range skillDescriptions {
		mcpsdk.AddTool[Params, Output](server, &mcpsdk.Tool{
			Name:        name,
			Description: description,
		}, h.makeToolHandler(name, tc, ident, authErr, contextID))
	}

	return server
}

// makeToolHandler builds the mcpsdk tool handler for one AdCP skill,
// running it through the shared dispatcher and shaping the result per
// spec.md §4.10: structured_content carries the AdCP response, domain
// errors surface inside structured_content.errors, transport errors
// surface as MCP tool errors.
func (h *Handler) makeToolHandler(skillName string, tc *tenant.Context, ident *principal.Identity, authErr error, contextID string) func(context.Context, *mcpsdk.CallToolRequest, Params) (*mcpsdk.CallToolResult, Output, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, params Params) (*mcpsdk.CallToolResult, Output, error) {
		result, terr := h.dispatcher.Dispatch(ctx, contextID, skillName, params, ident, authErr, tc, "mcp")
		if terr != nil {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: terr.Error()}},
				IsError: true,
			}, nil, nil
		}

		output := Output(result.Data)
		if output == nil {
			output = Output{}
		}
		if len(result.Errors) > 0 {
			errs := make([]map[string]any, 0, len(result.Errors))
			for _, e := range result.Errors {
				errs = append(errs, map[string]any{"kind": e.Kind, "code": e.Code, "message": e.Message})
			}
			output["errors"] = errs
		}

		return &mcpsdk.CallToolResult{
			Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("%s completed", skillName)}},
			StructuredContent: output,
		}, output, nil
	}
}

// HTTPHandler exposes the StreamableHTTPHandler for mounting in cmd/server.
func (h *Handler) HTTPHandler() *mcpsdk.StreamableHTTPHandler {
	return h.http
}

// NewRouter mounts the MCP tool endpoint alongside the operator debug
// endpoints the e2e harness expects on the same port (spec.md §4.10;
// grounded on tests/e2e/conftest.py, which hits /admin/reset-db-pool and
// /debug/db-state against mcp_port).
func NewRouter(h *Handler, debug *DebugEndpoints) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", h.HTTPHandler())
	mux.HandleFunc("/admin/reset-db-pool", debug.ResetPool)
	mux.HandleFunc("/debug/db-state", debug.DBState)
	return mux
}
