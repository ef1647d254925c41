package skills

import (
	"context"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// UpdatePerformanceIndex implements the optimization-feedback skill: a
// buyer reports how a media buy is performing so the adapter/ops team can
// act on it. There is no AdCP entity mutation here, only an acknowledged
// feedback record — grounded on original_source's
// core_update_performance_index_tool, which is a thin pass-through rather
// than a state machine.
func (s *Service) UpdatePerformanceIndex(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	mediaBuyID, hasID := paramString(params, "media_buy_id")
	performanceData, hasData := paramObject(params, "performance_data")
	if !hasID || !hasData {
		return nil, invalidParams(tc, "media_buy_id and performance_data are required")
	}

	var mb db.MediaBuy
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ? AND media_buy_id = ?", tc.TenantID, mediaBuyID).First(&mb).Error; err != nil {
		return nil, notFound(tc, "media buy not found")
	}
	if mb.PrincipalID != tc.PrincipalID {
		return nil, permissionDenied(tc, "caller does not own this media buy")
	}

	return &dispatch.Result{Data: map[string]any{
		"success":         true,
		"media_buy_id":    mediaBuyID,
		"context":         params["context"],
		"performance_data": performanceData,
	}}, nil
}
