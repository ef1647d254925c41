package skills

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adcp-project/sales-agent/internal/adapter"
	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
	"github.com/adcp-project/sales-agent/internal/jsonfield"
)

// CreateMediaBuy implements the state machine of spec.md §4.5.
func (s *Service) CreateMediaBuy(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	rawPackages, _ := params["packages"].([]any)
	if len(rawPackages) == 0 {
		return nil, invalidParams(tc, "packages is required and must be non-empty")
	}
	startRaw, hasStart := paramString(params, "start_time")
	endRaw, hasEnd := paramString(params, "end_time")
	if !hasStart || !hasEnd {
		missing := missingFields(map[string]bool{"start_time": !hasStart, "end_time": !hasEnd})
		return nil, invalidParams(tc, "missing required fields: "+missing)
	}
	startTime, err := parseFlightTime(startRaw)
	if err != nil {
		return nil, invalidParams(tc, err.Error())
	}
	endTime, err := parseFlightTime(endRaw)
	if err != nil {
		return nil, invalidParams(tc, err.Error())
	}

	var t db.Tenant
	if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", tc.TenantID).First(&t).Error; err != nil {
		return nil, internalError(tc, err)
	}

	packages, implConfig, domainErrs := s.resolvePackages(ctx, tc.TenantID, rawPackages)
	if len(packages) == 0 && len(domainErrs) > 0 {
		return &dispatch.Result{Data: map[string]any{"success": false}, Errors: domainErrs}, nil
	}

	mediaBuyID := "mb_" + uuid.NewString()
	buyerRef, _ := paramString(params, "buyer_ref")
	reportingWebhook, _ := paramString(params, "reporting_webhook")

	mb := &db.MediaBuy{
		TenantID:            tc.TenantID,
		MediaBuyID:          mediaBuyID,
		BuyerRef:            buyerRef,
		PrincipalID:         tc.PrincipalID,
		StartTime:           startTime,
		EndTime:             endTime,
		StartDate:           startTime,
		EndDate:             endTime,
		ReportingWebhookURL: reportingWebhook,
		RawRequest:          jsonfield.Object(params),
	}

	requiresReview := t.HumanReviewRequired
	if v, ok := paramBool(params, "require_manual_approval"); ok && v {
		requiresReview = true
	}

	if requiresReview {
		mb.Status = db.MediaBuySubmitted
		if err := s.gdb.WithContext(ctx).Create(mb).Error; err != nil {
			return nil, internalError(tc, err)
		}
		t, err := s.tasks.CreateTask(ctx, tc.ContextID, tc.TenantID, tc.PrincipalID, []string{"create_media_buy"}, db.InvocationExplicitSkill)
		if err != nil {
			return nil, internalError(tc, err)
		}
		if pushCfg, ok := paramObject(params, "push_notification_config"); ok {
			if err := s.tasks.RegisterPushConfigFromInput(ctx, t.TaskID, tc.TenantID, tc.PrincipalID, pushCfg); err != nil {
				return nil, internalError(tc, err)
			}
		}
		if _, err := s.tasks.UpdateStatus(ctx, t.TaskID, "submitted", map[string]any{"media_buy_id": mediaBuyID}, nil); err != nil {
			return nil, internalError(tc, err)
		}
		return &dispatch.Result{Data: map[string]any{
			"media_buy_id": mediaBuyID,
			"status":       string(db.MediaBuySubmitted),
			"task_id":      t.TaskID,
			"context":      params["context"],
		}}, nil
	}

	kind := "mock"
	if t.AdServer != nil {
		kind = string(*t.AdServer)
	}
	ad, ok := s.adapters.Resolve(kind)
	if !ok {
		return nil, internalError(tc, fmt.Errorf("no adapter registered for kind %q", kind))
	}

	adapterInput := adapter.CreateMediaBuyInput{
		MediaBuyID:           mediaBuyID,
		Packages:             packages,
		StartTime:            startTime,
		EndTime:              endTime,
		ImplementationConfig: implConfig,
		TestingContext:       tc.TestingContext,
	}
	out, err := ad.CreateMediaBuy(ctx, implConfig, adapterInput)
	if err != nil {
		if adErr, ok := err.(*adapter.AdServerError); ok {
			domainErrs = append(domainErrs, dispatch.DomainError{
				Kind:    dispatch.DomainAdapterError,
				Code:    adErr.Code,
				Message: adErr.Message,
			})
			return &dispatch.Result{Data: map[string]any{"success": false}, Errors: domainErrs}, nil
		}
		return nil, internalError(tc, err)
	}

	mb.Status = db.MediaBuyStatus(out.Status)
	if err := s.gdb.WithContext(ctx).Create(mb).Error; err != nil {
		return nil, internalError(tc, err)
	}

	return &dispatch.Result{Data: map[string]any{
		"media_buy_id": mediaBuyID,
		"status":       out.Status,
		"context":      params["context"],
	}, Errors: domainErrs}, nil
}

// resolvePackages reads each package's product, resolving its
// InventoryProfile at buy time (never at product-definition time, per
// spec.md §4.5 step 2) into the adapter's implementation_config.
func (s *Service) resolvePackages(ctx context.Context, tenantID string, raw []any) ([]adapter.PackageInput, map[string]any, []dispatch.DomainError) {
	packages := make([]adapter.PackageInput, 0, len(raw))
	var errs []dispatch.DomainError
	mergedConfig := map[string]any{}

	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		productID, _ := m["product_id"].(string)
		buyerRef, _ := m["buyer_ref"].(string)

		var product db.Product
		err := s.gdb.WithContext(ctx).Where("tenant_id = ? AND product_id = ?", tenantID, productID).First(&product).Error
		if err != nil {
			errs = append(errs, dispatch.DomainError{
				Kind:      dispatch.DomainValidationError,
				Message:   fmt.Sprintf("product %q not found", productID),
				PackageID: buyerRef,
			})
			continue
		}

		if product.InventoryProfileID != nil {
			var profile db.InventoryProfile
			if err := s.gdb.WithContext(ctx).Where("tenant_id = ? AND profile_id = ?", tenantID, *product.InventoryProfileID).First(&profile).Error; err == nil {
				mergedConfig["ad_units"] = map[string]any(profile.AdUnits)
				mergedConfig["placements"] = map[string]any(profile.Placements)
			}
		}

		budget, _ := m["budget"].(float64)
		pricingOptionID, _ := m["pricing_option_id"].(string)
		targeting, _ := m["targeting_overlay"].(map[string]any)
		creativeIDs := paramStringSlice(m, "creative_ids")

		packages = append(packages, adapter.PackageInput{
			BuyerRef:         buyerRef,
			ProductID:        productID,
			PricingOptionID:  pricingOptionID,
			Budget:           budget,
			TargetingOverlay: targeting,
			CreativeIDs:      creativeIDs,
		})
	}

	return packages, mergedConfig, errs
}

func missingFields(missing map[string]bool) string {
	out := ""
	for field, isMissing := range missing {
		if isMissing {
			if out != "" {
				out += ", "
			}
			out += field
		}
	}
	return out
}
