// Package tenant resolves an incoming request to a Tenant before
// authentication runs, implementing the header-precedence rules of
// spec.md §4.1. Grounded on the teacher's httpserver/middleware.go, which
// resolves similarly layered routing information (user/session) from
// request headers ahead of the handler chain.
package tenant

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/adcp-project/sales-agent/internal/db"
)

// HeaderApxIncomingHost is the platform edge's rewritten-host header.
const HeaderApxIncomingHost = "Apx-Incoming-Host"

// HeaderAdCPTenant lets a caller name a tenant directly when it cannot
// control its own Host header (common for A2A clients behind shared proxies).
const HeaderAdCPTenant = "x-adcp-tenant"

// reservedLabels are Host subdomain labels that never resolve to a tenant:
// the bare platform apex, the local-dev host, and the admin console.
var reservedLabels = map[string]bool{
	"localhost": true,
	"www":       true,
	"admin":     true,
	"api":       true,
}

// Context is the resolved tenant, or the absence of one. A nil *Context
// from Resolve means "no tenant" — the caller may still proceed to
// global-token authentication per spec.md §4.1.
type Context struct {
	TenantID            string
	Subdomain           string
	AdServer            *db.AdServerKind
	HumanReviewRequired bool
	BrandManifestPolicy db.BrandManifestPolicy
	IsActive            bool
}

// Resolver looks tenants up by subdomain, virtual host, or direct id.
type Resolver struct {
	gdb *gorm.DB
}

func NewResolver(gdb *gorm.DB) *Resolver {
	return &Resolver{gdb: gdb}
}

// Resolve implements the three-step precedence of spec.md §4.1. The first
// header that yields a match wins; headers that don't match fall through to
// the next rule rather than failing the request outright.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Context, error) {
	if label, ok := hostSubdomainLabel(req.Host); ok {
		if tc, err := r.lookupBySubdomain(ctx, label); err != nil {
			return nil, err
		} else if tc != nil {
			return tc, nil
		}
		if tc, err := r.lookupByVirtualHost(ctx, req.Host); err != nil {
			return nil, err
		} else if tc != nil {
			return tc, nil
		}
	}

	if value := strings.TrimSpace(req.Header.Get(HeaderAdCPTenant)); value != "" {
		if tc, err := r.lookupBySubdomain(ctx, value); err != nil {
			return nil, err
		} else if tc != nil {
			return tc, nil
		}
		if tc, err := r.lookupByID(ctx, value); err != nil {
			return nil, err
		} else if tc != nil {
			return tc, nil
		}
	}

	if edge := strings.TrimSpace(req.Header.Get(HeaderApxIncomingHost)); edge != "" {
		if tc, err := r.lookupByVirtualHost(ctx, edge); err != nil {
			return nil, err
		} else if tc != nil {
			return tc, nil
		}
	}

	return nil, nil
}

// hostSubdomainLabel extracts the first label of req.Host and reports
// whether it is eligible to be treated as a tenant subdomain at all.
func hostSubdomainLabel(host string) (string, bool) {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	if len(labels) == 0 {
		return "", false
	}
	label := labels[0]
	if label == "" || reservedLabels[label] {
		return "", false
	}
	return label, true
}

func toContext(t *db.Tenant) *Context {
	return &Context{
		TenantID:            t.TenantID,
		Subdomain:           t.Subdomain,
		AdServer:            t.AdServer,
		HumanReviewRequired: t.HumanReviewRequired,
		BrandManifestPolicy: t.BrandManifestPolicy,
		IsActive:            t.IsActive,
	}
}

func (r *Resolver) lookupBySubdomain(ctx context.Context, subdomain string) (*Context, error) {
	var t db.Tenant
	err := r.gdb.WithContext(ctx).Where("subdomain = ?", subdomain).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: lookup by subdomain %q: %w", subdomain, err)
	}
	return toContext(&t), nil
}

func (r *Resolver) lookupByVirtualHost(ctx context.Context, host string) (*Context, error) {
	var t db.Tenant
	err := r.gdb.WithContext(ctx).Where("virtual_host = ?", host).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: lookup by virtual host %q: %w", host, err)
	}
	return toContext(&t), nil
}

func (r *Resolver) lookupByID(ctx context.Context, id string) (*Context, error) {
	var t db.Tenant
	err := r.gdb.WithContext(ctx).Where("tenant_id = ?", id).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: lookup by id %q: %w", id, err)
	}
	return toContext(&t), nil
}
