package skills

import (
	"context"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// ListCreativeFormats implements spec.md §4.9: auth-optional, publicly
// disclosable data only. Formats are the distinct format ids that appear
// across the tenant's products, since there is no dedicated format catalog
// in spec.md §3; the tenant's auto_approve_formats list is not consulted.
func (s *Service) ListCreativeFormats(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	var products []db.Product
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).Find(&products).Error; err != nil {
		return nil, internalError(tc, err)
	}

	seen := map[string]bool{}
	formats := make([]map[string]any, 0)
	for _, p := range products {
		for _, f := range p.FormatIDs {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			formats = append(formats, map[string]any{"agent_url": f.AgentURL, "id": f.ID})
		}
	}

	return &dispatch.Result{Data: map[string]any{"formats": formats}}, nil
}
