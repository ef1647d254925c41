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

// SyncCreatives implements the full-upsert semantics of spec.md §4.8 (AdCP
// 2.5 removed patch semantics — there is no partial-update path here).
func (s *Service) SyncCreatives(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	rawCreatives, _ := params["creatives"].([]any)
	dryRun, _ := paramBool(params, "dry_run")
	deleteMissing, _ := paramBool(params, "delete_missing")
	assignments, _ := paramObject(params, "assignments")

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

	var domainErrs []dispatch.DomainError
	adapterInputs := make([]adapter.CreativeSyncInput, 0, len(rawCreatives))
	models := make([]*db.Creative, 0, len(rawCreatives))
	seenIDs := make([]string, 0, len(rawCreatives))

	for _, item := range rawCreatives {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		creativeID, _ := m["creative_id"].(string)
		if creativeID == "" {
			creativeID = "cr_" + uuid.NewString()
		}
		name, _ := m["name"].(string)
		formatRef, _ := m["format_id"].(map[string]any)
		fr := jsonfield.FormatRef{}
		if formatRef != nil {
			if v, ok := formatRef["agent_url"].(string); ok {
				fr.AgentURL = v
			}
			if v, ok := formatRef["id"].(string); ok {
				fr.ID = v
			}
		}

		seenIDs = append(seenIDs, creativeID)
		adapterInputs = append(adapterInputs, adapter.CreativeSyncInput{
			CreativeID: creativeID,
			FormatID:   fr.ID,
			Payload:    m,
		})
		models = append(models, &db.Creative{
			TenantID:    tc.TenantID,
			CreativeID:  creativeID,
			PrincipalID: tc.PrincipalID,
			Name:        name,
			FormatID:    fr,
			Status:      db.CreativePendingReview,
			Payload:     jsonfield.Object(m),
		})
	}

	if dryRun {
		return &dispatch.Result{Data: map[string]any{
			"success":        true,
			"dry_run":        true,
			"creative_count": len(models),
		}}, nil
	}

	results, err := ad.SyncCreatives(ctx, nil, adapterInputs)
	if err != nil {
		return nil, internalError(tc, err)
	}
	statusByID := make(map[string]string, len(results))
	for _, r := range results {
		statusByID[r.CreativeID] = r.Status
		if r.Error != "" {
			domainErrs = append(domainErrs, dispatch.DomainError{
				Kind:       dispatch.DomainValidationError,
				Message:    r.Error,
				CreativeID: r.CreativeID,
			})
		}
	}

	anyPendingReview := false
	for _, m := range models {
		if status, ok := statusByID[m.CreativeID]; ok {
			m.Status = db.CreativeStatus(status)
		}
		if m.Status == db.CreativePendingReview {
			anyPendingReview = true
		}
		if err := s.gdb.WithContext(ctx).Save(m).Error; err != nil {
			domainErrs = append(domainErrs, dispatch.DomainError{
				Kind:       dispatch.DomainValidationError,
				Message:    fmt.Sprintf("failed to persist creative: %v", err),
				CreativeID: m.CreativeID,
			})
		}
	}

	if err := s.applyAssignments(ctx, tc.TenantID, assignments); err != nil {
		domainErrs = append(domainErrs, dispatch.DomainError{Kind: dispatch.DomainValidationError, Message: err.Error()})
	}

	if deleteMissing {
		if err := s.gdb.WithContext(ctx).
			Where("tenant_id = ? AND principal_id = ? AND creative_id NOT IN ?", tc.TenantID, tc.PrincipalID, seenIDs).
			Delete(&db.Creative{}).Error; err != nil {
			domainErrs = append(domainErrs, dispatch.DomainError{Kind: dispatch.DomainValidationError, Message: err.Error()})
		}
	}

	taskStatus := "completed"
	if anyPendingReview {
		taskStatus = "submitted"
	}

	return &dispatch.Result{Data: map[string]any{
		"success":        true,
		"creative_count": len(models),
		"task_status":    taskStatus,
	}, Errors: domainErrs}, nil
}

// applyAssignments attaches creatives to packages within the same call,
// resolving package_buyer_ref to package_id per media-buy scope (spec.md
// §4.8). Our package identity is the buyer_ref itself (there is no
// separate internal package_id), so resolution is an identity mapping
// scoped by tenant.
func (s *Service) applyAssignments(ctx context.Context, tenantID string, assignments map[string]any) error {
	for creativeID, raw := range assignments {
		packageRefs, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, pr := range packageRefs {
			packageBuyerRef, ok := pr.(string)
			if !ok {
				continue
			}
			var mb db.MediaBuy
			if err := s.gdb.WithContext(ctx).Where("tenant_id = ? AND buyer_ref = ?", tenantID, packageBuyerRef).First(&mb).Error; err != nil {
				continue
			}
			assignment := &db.CreativeAssignment{
				TenantID:     tenantID,
				AssignmentID: "ca_" + uuid.NewString(),
				CreativeID:   creativeID,
				MediaBuyID:   mb.MediaBuyID,
				PackageID:    packageBuyerRef,
			}
			if err := s.gdb.WithContext(ctx).Create(assignment).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
