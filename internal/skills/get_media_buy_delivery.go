package skills

import (
	"context"
	"time"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// GetMediaBuyDelivery implements spec.md §4.7. Polling delivery never fires
// a webhook — webhooks are exclusively the scheduler's job (§4.12).
func (s *Service) GetMediaBuyDelivery(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	ids := paramStringSlice(params, "media_buy_ids")
	buyerRefs := paramStringSlice(params, "buyer_refs")
	statusFilter, _ := paramString(params, "status_filter")

	query := s.gdb.WithContext(ctx).Where("tenant_id = ? AND principal_id = ?", tc.TenantID, tc.PrincipalID)
	if len(ids) > 0 {
		query = query.Where("media_buy_id IN ?", ids)
	}
	if len(buyerRefs) > 0 {
		query = query.Where("buyer_ref IN ?", buyerRefs)
	}
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}
	if start, ok := paramString(params, "start_date"); ok {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			query = query.Where("end_time >= ?", t)
		}
	}
	if end, ok := paramString(params, "end_date"); ok {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			query = query.Where("start_time <= ?", t)
		}
	}

	var buys []db.MediaBuy
	if err := query.Find(&buys).Error; err != nil {
		return nil, internalError(tc, err)
	}

	var t db.Tenant
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).First(&t).Error; err != nil {
		return nil, internalError(tc, err)
	}
	kind := "mock"
	if t.AdServer != nil {
		kind = string(*t.AdServer)
	}
	ad, ok := s.adapters.Resolve(kind)
	if !ok {
		return nil, internalError(tc, errAdapterNotConfigured(kind))
	}

	deliveries := make([]map[string]any, 0, len(buys))
	for _, mb := range buys {
		out, err := ad.GetDelivery(ctx, nil, mb.MediaBuyID, mb.StartDate, time.Now())
		if err != nil {
			continue
		}
		deliveries = append(deliveries, map[string]any{
			"media_buy_id": mb.MediaBuyID,
			"totals": map[string]any{
				"impressions": out.Totals.Impressions,
				"clicks":      out.Totals.Clicks,
				"spend":       out.Totals.Spend,
			},
		})
	}

	return &dispatch.Result{Data: map[string]any{"media_buy_deliveries": deliveries}}, nil
}
