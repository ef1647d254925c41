package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.DatabaseQueryTimeout)
	assert.Equal(t, ":8080", cfg.MCPListenAddr)
	assert.Equal(t, ":8091", cfg.A2AListenAddr)
	assert.False(t, cfg.UsePgBouncer)
}

func TestLoadReadsEnvOverride(t *testing.T) {
	t.Setenv("MCP_LISTEN_ADDR", ":9000")
	t.Setenv("USE_PGBOUNCER", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.MCPListenAddr)
	assert.True(t, cfg.UsePgBouncer)
}

func TestLoadPrefersDatabaseURLFileOverDatabaseURL(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "db-url")
	require.NoError(t, err)
	_, err = f.WriteString("postgres://from-file\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv("DATABASE_URL", "postgres://from-env")
	t.Setenv("DATABASE_URL_FILE", f.Name())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-file", cfg.DatabaseURL)
}
