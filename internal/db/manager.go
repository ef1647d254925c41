package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sony/gobreaker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures Manager. Field names and defaults are grounded on
// original_source/src/core/database/database_session.py; see DESIGN.md.
type Config struct {
	DatabaseURL     string
	DatabaseURLFile string

	QueryTimeout   time.Duration
	ConnectTimeout time.Duration
	PoolTimeout    time.Duration

	UsePgBouncer bool

	GormLogLevel string
}

// Manager owns the GORM connection and the fail-fast circuit breaker that
// protects the rest of the process from cascading database failures.
// Grounded on the teacher's internal/database.Manager (gorm.Open +
// AutoMigrate wiring) with the PgBouncer/retry/circuit-breaker discipline
// of database_session.py layered on top.
type Manager struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	cfg      Config
	poolSize int

	breaker *gobreaker.CircuitBreaker

	mu        sync.RWMutex
	healthy   bool
	lastCheck time.Time
}

// isPgBouncerConnection mirrors _is_pgbouncer_connection: an explicit
// USE_PGBOUNCER override takes priority, otherwise the URL's port decides.
// Parsed rather than substring-matched, so a password containing ":6543"
// can never produce a false positive.
func isPgBouncerConnection(rawURL string, useEnvOverride bool) bool {
	if useEnvOverride {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return strings.Contains(rawURL, ":6543")
	}
	return parsed.Port() == "6543"
}

func resolveURLFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("db: failed to read DATABASE_URL_FILE %q: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// NewManager opens the connection pool, picking PgBouncer-aware or direct
// pool sizing, and installs a statement_timeout on every new physical
// connection via pgx's AfterConnect hook (PgBouncer does not accept the
// startup parameter, so this must happen as a session-level SET).
func NewManager(cfg Config) (*Manager, error) {
	dsn := cfg.DatabaseURL
	if cfg.DatabaseURLFile != "" {
		resolved, err := resolveURLFile(cfg.DatabaseURLFile)
		if err != nil {
			return nil, err
		}
		dsn = resolved
	}
	if !strings.Contains(dsn, "postgres") {
		return nil, fmt.Errorf("db: only PostgreSQL is supported, got dsn scheme from %q", dsn)
	}

	pgBouncer := isPgBouncerConnection(dsn, cfg.UsePgBouncer)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: failed to parse connection string: %w", err)
	}
	if cfg.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	statementTimeoutMillis := int64(cfg.QueryTimeout / time.Millisecond)
	afterConnect := func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET statement_timeout = '%d'", statementTimeoutMillis))
		return err
	}

	sqlDB := stdlib.OpenDB(*connConfig, stdlib.OptionAfterConnect(afterConnect))

	var poolSize int
	if pgBouncer {
		poolSize = 2
		sqlDB.SetMaxOpenConns(2 + 5) // pool_size + max_overflow
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(300 * time.Second)
		// pool_pre_ping is intentionally skipped with PgBouncer transaction
		// pooling, same as the original: pinging mid-transaction can desync
		// the PgBouncer-assigned backend.
	} else {
		poolSize = 10
		sqlDB.SetMaxOpenConns(10 + 20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(3600 * time.Second)
	}

	logLevel := logger.Silent
	switch strings.ToLower(cfg.GormLogLevel) {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db: failed to open gorm connection: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "adcp-db",
		MaxRequests: 1,
		Timeout:     10 * time.Second, // fail-fast cool-off, matches the 10s window in database_session.py
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	return &Manager{
		db:       gdb,
		sqlDB:    sqlDB,
		cfg:      cfg,
		poolSize: poolSize,
		breaker:  breaker,
		healthy:  true,
	}, nil
}

// Initialize runs AutoMigrate across every model declared in AllModels.
// Schema evolution beyond the initial shape is owned by the golang-migrate
// SQL files in internal/db/migrations; AutoMigrate here only establishes the
// baseline schema for a fresh database, mirroring the teacher's
// internal/database.Manager.Initialize.
func (m *Manager) Initialize() error {
	if err := m.db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	return m.sqlDB.Close()
}

// ErrDatabaseUnhealthy is returned by WithSession while the circuit breaker
// cool-off window is active, matching the original's fail-fast RuntimeError.
var ErrDatabaseUnhealthy = fmt.Errorf("db: database is unhealthy, failing fast to prevent cascading failures")

// WithSession runs fn against the pool through the circuit breaker. Any
// error returned by fn counts as a breaker failure, whether or not it is
// connection-level, and trips the breaker for the cool-off window; calls
// made during that window return ErrDatabaseUnhealthy without touching the
// network, exactly like the original's _is_healthy short-circuit.
func (m *Manager) WithSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	_, err := m.breaker.Execute(func() (any, error) {
		tx := m.db.WithContext(ctx)
		if err := fn(tx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		m.setHealthy(false)
		return ErrDatabaseUnhealthy
	}
	if err != nil {
		m.setHealthy(false)
		return err
	}
	m.setHealthy(true)
	return nil
}

// ExecuteWithRetry runs fn at most maxRetries times in all, waiting between
// attempts on the same exponential backoff schedule as execute_with_retry:
// 0.5s, 1s, 2s, ...
func (m *Manager) ExecuteWithRetry(ctx context.Context, maxRetries int, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = m.WithSession(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if lastErr == ErrDatabaseUnhealthy {
			return lastErr
		}
		if attempt < maxRetries-1 {
			wait := time.Duration(500*(1<<uint(attempt))) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

func (m *Manager) setHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	m.lastCheck = time.Now()
}

// Healthy reports the cached health flag without touching the database.
func (m *Manager) Healthy() (bool, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy, m.lastCheck
}

// CheckHealth runs "SELECT 1" to actively verify connectivity, updating the
// cached health flag reported by Healthy. It neither reads nor resets the
// circuit breaker that WithSession's fail-fast path consults.
func (m *Manager) CheckHealth(ctx context.Context) error {
	err := m.db.WithContext(ctx).Exec("SELECT 1").Error
	m.setHealthy(err == nil)
	return err
}

// PoolStats mirrors get_pool_status: size, checked_in, checked_out and a
// non-negative overflow figure, clamped the same way the original clamps
// SQLAlchemy's occasionally-negative pool.overflow().
type PoolStats struct {
	Size             int
	CheckedIn        int
	CheckedOut       int
	Overflow         int
	TotalConnections int
}

func (m *Manager) PoolStats() PoolStats {
	stats := m.sqlDB.Stats()
	overflow := stats.OpenConnections - m.poolSize
	if overflow < 0 {
		overflow = 0
	}
	return PoolStats{
		Size:             m.poolSize,
		CheckedIn:        stats.Idle,
		CheckedOut:       stats.InUse,
		Overflow:         overflow,
		TotalConnections: m.poolSize + overflow,
	}
}

// DB exposes the underlying *gorm.DB for packages that need direct access
// outside the circuit-breaker path (migrations, read-only debug endpoints).
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Reset marks the cached health flag healthy again — used by the
// /admin/reset-db-pool debug endpoint and the reset-pool subcommand. It does
// not close or reopen pooled connections, and it leaves the circuit
// breaker's state unchanged.
func (m *Manager) Reset() {
	m.setHealthy(true)
}
