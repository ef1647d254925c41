// Package principal authenticates a request's bearer credential into a
// principal within a resolved tenant, implementing spec.md §4.2. Grounded
// on the teacher's httpserver/auth package, which layers several credential
// schemes (OAuth2, secure-auth, proxy-auth) behind one Authenticator
// interface; we follow the same "try Authorization, fall back to the legacy
// header" shape with one Authenticator that accepts an opaque access token
// and, optionally, an HS256 JWT.
package principal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/jsonfield"
	"github.com/adcp-project/sales-agent/internal/tenant"
)

// HeaderLegacyAuth is the historical MCP-client credential header, kept
// alongside Authorization for backward compatibility.
const HeaderLegacyAuth = "x-adcp-auth"

// ErrMissingAuthentication means neither credential header was present.
var ErrMissingAuthentication = fmt.Errorf("missing_authentication")

// ErrInvalidAuthToken means a credential was present but did not resolve to
// a principal, or resolved to a principal of the wrong tenant.
type ErrInvalidAuthToken struct {
	TenantID string
}

func (e *ErrInvalidAuthToken) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("invalid_auth_token: token does not belong to tenant %q", e.TenantID)
	}
	return "invalid_auth_token"
}

// Identity is the authenticated caller.
type Identity struct {
	TenantID         string
	PrincipalID      string
	Name             string
	PlatformMappings jsonfield.PlatformMappings
}

// Authenticator resolves bearer credentials to a Principal. Two credential
// formats are accepted: an opaque access token stored on the Principal row
// (the default), and, when jwtSecret is non-empty, an HS256 JWT carrying
// tenant_id/principal_id claims (spec.md's optional JWT principal format).
type Authenticator struct {
	gdb       *gorm.DB
	jwtSecret []byte
}

func NewAuthenticator(gdb *gorm.DB, jwtSecret []byte) *Authenticator {
	return &Authenticator{gdb: gdb, jwtSecret: jwtSecret}
}

// ExtractToken reads Authorization: Bearer first, then x-adcp-auth.
func ExtractToken(req *http.Request) (string, bool) {
	if auth := req.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			token = strings.TrimSpace(token)
			if token != "" {
				return token, true
			}
		}
	}
	if token := strings.TrimSpace(req.Header.Get(HeaderLegacyAuth)); token != "" {
		return token, true
	}
	return "", false
}

// Authenticate resolves a token to an Identity. When tc is non-nil (a
// tenant was already resolved from headers), lookup is tenant-scoped and a
// token belonging to a different tenant is rejected by name rather than
// silently accepted, per spec.md §4.1's cross-tenant rejection rule. When
// tc is nil, lookup is global: whichever tenant owns the token wins.
func (a *Authenticator) Authenticate(ctx context.Context, token string, tc *tenant.Context) (*Identity, error) {
	if len(a.jwtSecret) > 0 {
		if principalID, jwtTenantID, ok := a.parseJWT(token); ok {
			return a.resolveByPrincipalID(ctx, principalID, jwtTenantID, tc)
		}
	}

	var p db.Principal
	query := a.gdb.WithContext(ctx).Where("access_token = ?", token)
	if tc != nil {
		query = query.Where("tenant_id = ?", tc.TenantID)
	}
	err := query.First(&p).Error
	if err == gorm.ErrRecordNotFound {
		if tc != nil {
			return nil, &ErrInvalidAuthToken{TenantID: tc.TenantID}
		}
		return nil, &ErrInvalidAuthToken{}
	}
	if err != nil {
		return nil, fmt.Errorf("principal: token lookup failed: %w", err)
	}
	return &Identity{
		TenantID:         p.TenantID,
		PrincipalID:      p.PrincipalID,
		Name:             p.Name,
		PlatformMappings: p.PlatformMappings,
	}, nil
}

// parseJWT validates an HS256 token against jwtSecret and extracts its
// tenant_id/principal_id claims. A token that is malformed, wrongly signed,
// or missing either claim is not a JWT credential at all as far as this
// Authenticator is concerned — callers fall back to opaque-token lookup.
func (a *Authenticator) parseJWT(token string) (principalID, tenantID string, ok bool) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, isHMAC := t.Method.(*jwt.SigningMethodHMAC); !isHMAC {
			return nil, fmt.Errorf("principal: unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", false
	}

	principalID, _ = claims["principal_id"].(string)
	tenantID, _ = claims["tenant_id"].(string)
	if principalID == "" || tenantID == "" {
		return "", "", false
	}
	return principalID, tenantID, true
}

// resolveByPrincipalID looks up the Principal a validated JWT asserts,
// rejecting it if header-derived tenant resolution (tc) disagrees with the
// token's own tenant_id claim, same as the opaque-token cross-tenant rule.
func (a *Authenticator) resolveByPrincipalID(ctx context.Context, principalID, jwtTenantID string, tc *tenant.Context) (*Identity, error) {
	if tc != nil && tc.TenantID != jwtTenantID {
		return nil, &ErrInvalidAuthToken{TenantID: tc.TenantID}
	}

	var p db.Principal
	err := a.gdb.WithContext(ctx).
		Where("tenant_id = ? AND principal_id = ?", jwtTenantID, principalID).
		First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &ErrInvalidAuthToken{TenantID: jwtTenantID}
	}
	if err != nil {
		return nil, fmt.Errorf("principal: jwt principal lookup failed: %w", err)
	}

	return &Identity{
		TenantID:         p.TenantID,
		PrincipalID:      p.PrincipalID,
		Name:             p.Name,
		PlatformMappings: p.PlatformMappings,
	}, nil
}

// MinimalContext is what discovery skills (spec.md §4.7) receive when no
// credential was presented: headers only, no principal identity.
type MinimalContext struct {
	TenantID string
}
