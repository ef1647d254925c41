package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcp-project/sales-agent/internal/principal"
	"github.com/adcp-project/sales-agent/internal/tenant"
)

func TestIsDiscoverySkillExactSet(t *testing.T) {
	assert.True(t, IsDiscoverySkill("get_products"))
	assert.True(t, IsDiscoverySkill("list_creative_formats"))
	assert.True(t, IsDiscoverySkill("list_authorized_properties"))
	assert.False(t, IsDiscoverySkill("create_media_buy"))
}

func TestNormalizeParamsLiftsSingularMediaBuyID(t *testing.T) {
	out := NormalizeParams("update_media_buy", map[string]any{"media_buy_id": "mb_1"})
	assert.Equal(t, []any{"mb_1"}, out["media_buy_ids"])
	_, hasSingular := out["media_buy_id"]
	assert.False(t, hasSingular)
}

func TestNormalizeParamsFlattensLegacyUpdatesPackages(t *testing.T) {
	out := NormalizeParams("update_media_buy", map[string]any{
		"media_buy_id": "mb_1",
		"updates":      map[string]any{"packages": []any{"pkg_1"}},
	})
	assert.Equal(t, []any{"pkg_1"}, out["packages"])
	_, hasUpdates := out["updates"]
	assert.False(t, hasUpdates)
}

func TestNormalizeParamsUnwrapsInputEnvelope(t *testing.T) {
	out := NormalizeParams("get_products", map[string]any{
		"input": map[string]any{"brief": "shoes"},
	})
	assert.Equal(t, "shoes", out["brief"])
}

func TestDispatchRejectsUnauthenticatedNonDiscoverySkill(t *testing.T) {
	d := NewDispatcher()
	d.Register("create_media_buy", func(ctx context.Context, tc *ToolContext, params map[string]any) (*Result, error) {
		return &Result{Data: map[string]any{}}, nil
	})

	_, err := d.Dispatch(context.Background(), "ctx-1", "create_media_buy", nil, nil, nil, &tenant.Context{TenantID: "acme"}, "mcp")
	require.NotNil(t, err)
	assert.Equal(t, ErrMissingAuthentication, err.Kind)
	assert.Contains(t, err.Error(), "acme")
}

func TestDispatchInvalidAuthTokenIsDistinctFromMissing(t *testing.T) {
	d := NewDispatcher()
	d.Register("create_media_buy", func(ctx context.Context, tc *ToolContext, params map[string]any) (*Result, error) {
		return &Result{Data: map[string]any{}}, nil
	})

	_, err := d.Dispatch(context.Background(), "ctx-1", "create_media_buy", nil, nil, &principal.ErrInvalidAuthToken{TenantID: "acme"}, &tenant.Context{TenantID: "acme"}, "mcp")
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidAuthToken, err.Kind)
	assert.Contains(t, err.Error(), "acme")
}

func TestDispatchAllowsUnauthenticatedDiscoverySkill(t *testing.T) {
	d := NewDispatcher()
	d.Register("get_products", func(ctx context.Context, tc *ToolContext, params map[string]any) (*Result, error) {
		return &Result{Data: map[string]any{"products": []any{}}}, nil
	})

	res, err := d.Dispatch(context.Background(), "ctx-1", "get_products", nil, nil, nil, &tenant.Context{TenantID: "acme"}, "mcp")
	require.Nil(t, err)
	require.NotNil(t, res)
}

func TestDispatchUnknownSkillIsMethodNotFound(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Dispatch(context.Background(), "ctx-1", "nonexistent", nil, &principal.Identity{PrincipalID: "p1"}, nil, nil, "mcp")
	require.NotNil(t, err)
	assert.Equal(t, ErrMethodNotFound, err.Kind)
}

type fakeRecorder struct {
	calls  []string
	errors []string
}

func (f *fakeRecorder) ObserveCall(skill, transport string) {
	f.calls = append(f.calls, skill+":"+transport)
}

func (f *fakeRecorder) ObserveError(skill, kind string) {
	f.errors = append(f.errors, skill+":"+kind)
}

func TestDispatchRecordsCallsAndErrors(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher()
	d.SetRecorder(rec)
	d.Register("get_products", func(ctx context.Context, tc *ToolContext, params map[string]any) (*Result, error) {
		return &Result{Data: map[string]any{}}, nil
	})

	_, err := d.Dispatch(context.Background(), "ctx-1", "get_products", nil, nil, nil, &tenant.Context{TenantID: "acme"}, "mcp")
	require.Nil(t, err)
	assert.Equal(t, []string{"get_products:mcp"}, rec.calls)
	assert.Empty(t, rec.errors)

	_, err = d.Dispatch(context.Background(), "ctx-1", "nonexistent", nil, nil, nil, &tenant.Context{TenantID: "acme"}, "mcp")
	require.NotNil(t, err)
	assert.Contains(t, rec.errors, ":method_not_found")
}
