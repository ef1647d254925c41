package skills

import (
	"context"
	"net/url"
	"strings"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// normalizeBrandManifest accepts either an object ({name, url}) or a bare
// URL string, normalizing the latter to {url: ..., name: <domain>} per
// spec.md §4.4.
func normalizeBrandManifest(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		domain := v
		if parsed, err := url.Parse(v); err == nil && parsed.Host != "" {
			domain = strings.TrimPrefix(parsed.Host, "www.")
		}
		return map[string]any{"url": v, "name": domain}
	default:
		return nil
	}
}

// GetProducts implements spec.md §4.4. adcp_version is never read —
// forwarding it to downstream helpers has been a recurring source of bugs
// in the original implementation, so nothing here passes it on.
func (s *Service) GetProducts(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	brief, _ := paramString(params, "brief")
	brandManifest := normalizeBrandManifest(params["brand_manifest"])

	if brief == "" && brandManifest == nil {
		return nil, invalidParams(tc, "at least one of brief or brand_manifest is required")
	}

	var t db.Tenant
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).First(&t).Error; err != nil {
		return nil, internalError(tc, err)
	}

	if t.BrandManifestPolicy == db.BrandManifestRequireAuth && tc.PrincipalID == "" {
		return nil, dispatch.NewTransportError(dispatch.ErrMissingAuthentication, "tenant requires authentication for get_products", tc.TenantID, "")
	}
	if t.BrandManifestPolicy == db.BrandManifestRequireBrand && brandManifest == nil {
		return nil, invalidParams(tc, "tenant requires brand_manifest for get_products")
	}

	var candidates []db.Product
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).Find(&candidates).Error; err != nil {
		return nil, internalError(tc, err)
	}

	out := make([]map[string]any, 0, len(candidates))
	for _, p := range candidates {
		if !principalAllowed(p.AllowedPrincipalIDs, tc.PrincipalID) {
			continue
		}
		if brief != "" && !matchesBrief(p, brief) {
			continue
		}
		out = append(out, productToResponse(&p))
	}

	return &dispatch.Result{Data: map[string]any{"products": out}}, nil
}

// principalAllowed reports whether the caller may see a product restricted
// by allowed_principal_ids. An empty restriction list means "everyone".
func principalAllowed(allowed []string, principalID string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, id := range allowed {
		if id == principalID {
			return true
		}
	}
	return false
}

// matchesBrief does a lightweight substring match against name/description;
// ranking by an external LLM helper is explicitly pluggable and not part of
// the core contract (spec.md §4.4).
func matchesBrief(p db.Product, brief string) bool {
	brief = strings.ToLower(brief)
	return strings.Contains(strings.ToLower(p.Name), brief) ||
		strings.Contains(strings.ToLower(p.Description), brief) ||
		brief == ""
}

// productToResponse shapes a Product for the wire; allowed_principal_ids
// is deliberately never included (spec.md §4.4).
func productToResponse(p *db.Product) map[string]any {
	formatIDs := make([]map[string]any, 0, len(p.FormatIDs))
	for _, f := range p.FormatIDs {
		formatIDs = append(formatIDs, map[string]any{"agent_url": f.AgentURL, "id": f.ID})
	}
	return map[string]any{
		"product_id":       p.ProductID,
		"name":             p.Name,
		"description":      p.Description,
		"format_ids":       formatIDs,
		"pricing_options":  p.PricingOptions(),
	}
}
