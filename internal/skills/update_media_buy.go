package skills

import (
	"context"

	"github.com/adcp-project/sales-agent/internal/adapter"
	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// UpdateMediaBuy implements spec.md §4.6. media_buy_id/media_buy_ids and
// updates.packages have already been normalized by dispatch.NormalizeParams
// before this handler runs.
func (s *Service) UpdateMediaBuy(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	ids := paramStringSlice(params, "media_buy_ids")
	buyerRef, hasBuyerRef := paramString(params, "buyer_ref")
	hasID := len(ids) == 1

	if hasID == hasBuyerRef {
		return nil, invalidParams(tc, "exactly one of media_buy_id or buyer_ref is required")
	}

	var mb db.MediaBuy
	query := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID)
	if hasID {
		query = query.Where("media_buy_id = ?", ids[0])
	} else {
		query = query.Where("buyer_ref = ?", buyerRef)
	}
	if err := query.First(&mb).Error; err != nil {
		return nil, notFound(tc, "media buy not found")
	}

	if mb.PrincipalID != tc.PrincipalID {
		return nil, permissionDenied(tc, "caller does not own this media buy")
	}

	if paused, ok := paramBool(params, "paused"); ok {
		mb.Paused = paused
		if paused {
			mb.Status = db.MediaBuyPaused
		}
	}
	if budget, ok := paramFloat(params, "budget"); ok {
		mb.Budget = budget
	}
	if startRaw, ok := paramString(params, "start_time"); ok {
		if t, err := parseFlightTime(startRaw); err == nil {
			mb.StartTime = t
		}
	}
	if endRaw, ok := paramString(params, "end_time"); ok {
		if t, err := parseFlightTime(endRaw); err == nil {
			mb.EndTime = t
		}
	}

	var affected []string
	if rawPackages, ok := params["packages"].([]any); ok && len(rawPackages) > 0 {
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
		packageInputs, _, domainErrs := s.resolvePackages(ctx, tc.TenantID, rawPackages)
		if len(domainErrs) > 0 {
			return &dispatch.Result{Data: map[string]any{"success": false}, Errors: domainErrs}, nil
		}
		success, err := ad.UpdateMediaBuy(ctx, nil, adapter.UpdateMediaBuyInput{MediaBuyID: mb.MediaBuyID, Packages: packageInputs})
		if err != nil {
			if adErr, ok := err.(*adapter.AdServerError); ok {
				return &dispatch.Result{Data: map[string]any{"success": false}, Errors: []dispatch.DomainError{{
					Kind: dispatch.DomainAdapterError, Code: adErr.Code, Message: adErr.Message,
				}}}, nil
			}
			return nil, internalError(tc, err)
		}
		affected = success.AffectedPackageIDs
	}

	if err := s.gdb.WithContext(ctx).Save(&mb).Error; err != nil {
		return nil, internalError(tc, err)
	}

	return &dispatch.Result{Data: map[string]any{
		"media_buy_id":      mb.MediaBuyID,
		"status":            string(mb.Status),
		"affected_packages": affected,
	}}, nil
}
