package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/adcp-project/sales-agent/internal/db"
)

// DebugEndpoints exposes the two operator endpoints the e2e harness hits
// against the MCP port (grounded on tests/e2e/conftest.py, which calls
// /admin/reset-db-pool and /debug/db-state against mcp_port, not the A2A
// port): clearing the cached database health flag after a PgBouncer
// failover drill, and
// inspecting current pool/row counts for test setup assertions.
type DebugEndpoints struct {
	manager *db.Manager
}

func NewDebugEndpoints(manager *db.Manager) *DebugEndpoints {
	return &DebugEndpoints{manager: manager}
}

// ResetPool calls db.Manager.Reset, which marks the cached health flag
// healthy again; pooled connections are not closed or rebuilt.
func (d *DebugEndpoints) ResetPool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d.manager.Reset()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "reset"})
}

// DBState reports pool stats and basic tenant/product counts for e2e test
// assertions about database connectivity.
func (d *DebugEndpoints) DBState(w http.ResponseWriter, r *http.Request) {
	gdb := d.manager.DB()
	healthy, lastCheck := d.manager.Healthy()
	stats := d.manager.PoolStats()

	var tenantCount, productCount int64
	gdb.WithContext(r.Context()).Model(&db.Tenant{}).Count(&tenantCount)
	gdb.WithContext(r.Context()).Model(&db.Product{}).Count(&productCount)

	resp := map[string]any{
		"healthy":        healthy,
		"last_check":     lastCheck,
		"pool": map[string]any{
			"size":              stats.Size,
			"checked_in":        stats.CheckedIn,
			"checked_out":       stats.CheckedOut,
			"overflow":          stats.Overflow,
			"total_connections": stats.TotalConnections,
		},
		"tenant_count":  tenantCount,
		"product_count": productCount,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
