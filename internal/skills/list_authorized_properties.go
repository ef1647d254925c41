package skills

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// ListAuthorizedProperties implements spec.md §4.9. Auth-optional; the
// deprecated "tags" parameter (removed in AdCP 2.5) is ignored with a
// logged warning rather than rejected, matching the original's tolerance
// for stale clients.
func (s *Service) ListAuthorizedProperties(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	if _, ok := params["tags"]; ok {
		logr.FromContextOrDiscard(ctx).Info("deprecated parameter 'tags' passed to list_authorized_properties; ignoring", "tenant_id", tc.TenantID)
	}

	var t db.Tenant
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).First(&t).Error; err != nil {
		return nil, internalError(tc, err)
	}

	return &dispatch.Result{Data: map[string]any{
		"publisher_domains":     []string(t.PublisherDomains),
		"primary_channels":      []string(t.PrimaryChannels),
		"primary_countries":     []string(t.PrimaryCountries),
		"portfolio_description": t.PortfolioDescription,
		"advertising_policies":  map[string]any(t.AdvertisingPolicies),
		"last_updated":          t.UpdatedAt,
	}}, nil
}
