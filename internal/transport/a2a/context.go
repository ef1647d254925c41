// Package a2a serves the AdCP skills over the A2A JSON-RPC transport
// (spec.md §4.11-4.13). Grounded on the teacher's a2a_pkg/a2a package: an
// ADKTaskManager implementing taskmanager.TaskManager, backed by a
// TaskSavingEventQueue-style persistence hook, and go-adk/cmd/main.go's
// server.NewA2AServer(agentCard, taskManager).Handler() wiring.
package a2a

import (
	"context"
	"net/http"

	"github.com/adcp-project/sales-agent/internal/principal"
	"github.com/adcp-project/sales-agent/internal/tenant"
)

type contextKey int

const (
	tenantContextKey contextKey = iota
	identityContextKey
	authErrContextKey
)

// WithRequestInfo attaches the resolved tenant/principal/auth-failure to
// ctx. authErr is whatever principal.Authenticator.Authenticate returned
// (nil when no credential was presented, or when it resolved); a non-nil
// *principal.ErrInvalidAuthToken must reach dispatch.Dispatch so a
// wrong-tenant or unknown token is reported as invalid_auth_token rather
// than silently downgraded to missing_authentication (spec.md §4.1, §7).
func WithRequestInfo(ctx context.Context, tc *tenant.Context, ident *principal.Identity, authErr error) context.Context {
	ctx = context.WithValue(ctx, tenantContextKey, tc)
	ctx = context.WithValue(ctx, identityContextKey, ident)
	ctx = context.WithValue(ctx, authErrContextKey, authErr)
	return ctx
}

// TenantFromContext returns the tenant resolved for the current request, or
// nil if none matched (spec.md §4.1).
func TenantFromContext(ctx context.Context) *tenant.Context {
	tc, _ := ctx.Value(tenantContextKey).(*tenant.Context)
	return tc
}

// IdentityFromContext returns the authenticated principal for the current
// request, or nil if the caller presented no credential or one that did not
// resolve.
func IdentityFromContext(ctx context.Context) *principal.Identity {
	ident, _ := ctx.Value(identityContextKey).(*principal.Identity)
	return ident
}

// AuthErrFromContext returns the error principal.Authenticator.Authenticate
// produced for the current request, if any.
func AuthErrFromContext(ctx context.Context) error {
	err, _ := ctx.Value(authErrContextKey).(error)
	return err
}

// Middleware resolves tenant and principal from the inbound HTTP request
// headers (spec.md §4.1, §4.2) and stores them on the request context ahead
// of the A2A server library's own JSON-RPC dispatch, since
// taskmanager.TaskManager methods only receive a context.Context, never the
// *http.Request. Authentication failures are not rejected here: an
// unauthenticated identity is allowed through so discovery skills still
// work, and non-discovery skills reject it later inside the dispatcher,
// which also needs the original authErr to distinguish invalid_auth_token
// from missing_authentication.
func Middleware(tenantResolver *tenant.Resolver, authenticator *principal.Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc, err := tenantResolver.Resolve(ctx, r)
		if err != nil {
			http.Error(w, "tenant resolution failed", http.StatusInternalServerError)
			return
		}

		var ident *principal.Identity
		var authErr error
		if token, ok := principal.ExtractToken(r); ok {
			ident, authErr = authenticator.Authenticate(ctx, token, tc)
			if authErr != nil {
				if _, isInvalid := authErr.(*principal.ErrInvalidAuthToken); !isInvalid {
					http.Error(w, "authentication failed", http.StatusInternalServerError)
					return
				}
				ident = nil
			}
		}

		ctx = WithRequestInfo(ctx, tc, ident, authErr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
