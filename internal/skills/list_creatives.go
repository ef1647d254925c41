package skills

import (
	"context"
	"time"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
)

// sortableCreativeFields is the fixed allow-list of columns list_creatives
// may order by; an unrecognized "sort" value falls back to created_at
// rather than letting a caller-chosen string reach the raw SQL ORDER BY
// clause.
var sortableCreativeFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"status":     true,
}

// ListCreatives implements spec.md §4.8's list_creatives: pagination,
// status/format/tag filters, date range, full-text search, and sort,
// always scoped to the caller's (tenant, principal) — a principal never
// sees another principal's library.
func (s *Service) ListCreatives(ctx context.Context, tc *dispatch.ToolContext, params map[string]any) (*dispatch.Result, error) {
	query := s.gdb.WithContext(ctx).
		Model(&db.Creative{}).
		Where("tenant_id = ? AND principal_id = ?", tc.TenantID, tc.PrincipalID)

	if status, ok := paramString(params, "status"); ok {
		query = query.Where("status = ?", status)
	}
	if formatID, ok := paramString(params, "format_id"); ok {
		query = query.Where("format_id->>'id' = ?", formatID)
	}
	if tags := paramStringSlice(params, "tags"); len(tags) > 0 {
		query = query.Where("tags @> ?", tagsToJSONArray(tags))
	}
	if searchTerm, ok := paramString(params, "search"); ok {
		query = query.Where("name ILIKE ?", "%"+searchTerm+"%")
	}
	if createdAfter, ok := paramString(params, "created_after"); ok {
		if t, err := time.Parse(time.RFC3339, createdAfter); err == nil {
			query = query.Where("created_at >= ?", t)
		}
	}
	if createdBefore, ok := paramString(params, "created_before"); ok {
		if t, err := time.Parse(time.RFC3339, createdBefore); err == nil {
			query = query.Where("created_at <= ?", t)
		}
	}

	sortField := "created_at"
	if sortBy, ok := paramString(params, "sort"); ok && sortableCreativeFields[sortBy] {
		sortField = sortBy
	}
	query = query.Order(sortField + " DESC")

	page := 1
	pageSize := 50
	if v, ok := paramFloat(params, "page"); ok && v > 0 {
		page = int(v)
	}
	if v, ok := paramFloat(params, "page_size"); ok && v > 0 {
		pageSize = int(v)
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var creatives []db.Creative
	if err := query.Find(&creatives).Error; err != nil {
		return nil, internalError(tc, err)
	}

	out := make([]map[string]any, 0, len(creatives))
	for _, c := range creatives {
		out = append(out, map[string]any{
			"creative_id": c.CreativeID,
			"name":        c.Name,
			"status":      c.Status,
			"format_id":   map[string]any{"agent_url": c.FormatID.AgentURL, "id": c.FormatID.ID},
			"tags":        []string(c.Tags),
		})
	}

	return &dispatch.Result{Data: map[string]any{"creatives": out, "page": page, "page_size": pageSize}}, nil
}

// tagsToJSONArray builds a Postgres jsonb array literal for the @> contains
// operator used against the tags column.
func tagsToJSONArray(tags []string) string {
	out := "["
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += `"` + t + `"`
	}
	out += "]"
	return out
}
