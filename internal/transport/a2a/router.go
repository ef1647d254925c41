package a2a

import (
	"encoding/json"
	"net/http"

	"trpc.group/trpc-go/trpc-a2a-go/server"

	"github.com/adcp-project/sales-agent/internal/principal"
	"github.com/adcp-project/sales-agent/internal/tenant"
)

// NewRouter wires the A2A JSON-RPC server, the dynamic agent card
// endpoints, and the tenant debug endpoint into one http.Handler
// (spec.md §4.11-4.13), grounded on go-adk/cmd/main.go's
// mux.Handle("/", a2aServer.Handler()) wiring, generalized with the
// middleware stack this multi-tenant broker needs ahead of it.
func NewRouter(a2aServer *server.A2AServer, card server.AgentCard, tenantResolver *tenant.Resolver, authenticator *principal.Authenticator) http.Handler {
	mux := http.NewServeMux()

	a2aHandler := messageIDCompat(Middleware(tenantResolver, authenticator, a2aServer.Handler()))
	mux.Handle("/a2a", a2aHandler)
	mux.Handle("/a2a/", a2aHandler)

	cardHandler := dynamicAgentCardHandler(card)
	mux.HandleFunc("/.well-known/agent-card.json", cardHandler)
	mux.HandleFunc("/.well-known/agent.json", cardHandler)
	mux.HandleFunc("/agent.json", cardHandler)

	mux.HandleFunc("/debug/tenant", debugTenantHandler(tenantResolver))

	return mux
}

// dynamicAgentCardHandler serves the same AgentCard at all three
// conventional discovery paths, rewriting its URL to match the authority
// the caller actually used (spec.md §4.13).
func dynamicAgentCardHandler(card server.AgentCard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rewritten := RewriteCardURL(card, r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rewritten)
	}
}

// debugTenantHandler reports the tenant resolved for the current request
// and the headers it was resolved from, for operators diagnosing routing
// issues (spec.md §4.13). detection_method is inferred from the headers
// present ("apx-incoming-host" whenever that header is set, otherwise
// "host-subdomain"); it does not reflect which lookup actually matched.
// Grounded on the Python original's debug_tenant_endpoint.
func debugTenantHandler(tenantResolver *tenant.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apxHost := r.Header.Get(tenant.HeaderApxIncomingHost)
		host := r.Host

		tc, err := tenantResolver.Resolve(r.Context(), r)
		if err != nil {
			http.Error(w, "tenant resolution failed", http.StatusInternalServerError)
			return
		}

		var tenantID string
		var detectionMethod string
		if tc != nil {
			tenantID = tc.TenantID
			switch {
			case apxHost != "":
				detectionMethod = "apx-incoming-host"
			default:
				detectionMethod = "host-subdomain"
			}
		}

		resp := map[string]any{
			"tenant_id":         nullable(tenantID),
			"tenant_name":       nullable(tenantID),
			"detection_method":  nullable(detectionMethod),
			"apx_incoming_host": nullable(apxHost),
			"host":              nullable(host),
			"service":           "a2a",
		}

		if tenantID != "" {
			w.Header().Set("X-Tenant-Id", tenantID)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
