// Command server runs the AdCP sales agent: the MCP tool surface and the
// A2A JSON-RPC surface, both backed by the same dispatcher, database, and
// adapter registry. Grounded on the teacher's go-adk/cmd/main.go (flag
// parsing, logger setup, signal-driven graceful shutdown of one
// *http.Server) generalized to two listeners and a cobra command tree.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"trpc.group/trpc-go/trpc-a2a-go/server"

	"github.com/adcp-project/sales-agent/internal/adapter"
	"github.com/adcp-project/sales-agent/internal/config"
	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
	"github.com/adcp-project/sales-agent/internal/obs"
	"github.com/adcp-project/sales-agent/internal/principal"
	"github.com/adcp-project/sales-agent/internal/skills"
	"github.com/adcp-project/sales-agent/internal/task"
	"github.com/adcp-project/sales-agent/internal/tenant"
	"github.com/adcp-project/sales-agent/internal/transport/a2a"
	"github.com/adcp-project/sales-agent/internal/transport/mcp"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "sales-agent",
		Short: "AdCP sales agent: MCP + A2A broker over pluggable ad-server adapters",
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set the logging level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP and A2A servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(logLevel)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(logLevel)
		},
	}

	resetPoolCmd := &cobra.Command{
		Use:   "reset-pool",
		Short: "Reset the database connection pool's cached health state and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPool(logLevel)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, resetPoolCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildManager loads configuration and opens the database connection shared
// by every subcommand.
func buildManager(logLevel string) (*config.Config, *db.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("server: load config: %w", err)
	}

	manager, err := db.NewManager(db.Config{
		DatabaseURL:     cfg.DatabaseURL,
		DatabaseURLFile: cfg.DatabaseURLFile,
		QueryTimeout:    cfg.DatabaseQueryTimeout,
		ConnectTimeout:  cfg.DatabaseConnectTimeout,
		PoolTimeout:     cfg.DatabasePoolTimeout,
		UsePgBouncer:    cfg.UsePgBouncer,
		GormLogLevel:    cfg.GormLogLevel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("server: open database: %w", err)
	}

	return cfg, manager, nil
}

func runMigrate(logLevel string) error {
	logger, zapLogger := obs.NewLogger(logLevel)
	defer func() { _ = zapLogger.Sync() }()

	_, manager, err := buildManager(logLevel)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.RunMigrations(); err != nil {
		logger.Error(err, "migration failed")
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func runResetPool(logLevel string) error {
	logger, zapLogger := obs.NewLogger(logLevel)
	defer func() { _ = zapLogger.Sync() }()

	_, manager, err := buildManager(logLevel)
	if err != nil {
		return err
	}
	defer manager.Close()

	manager.Reset()
	logger.Info("database pool health state reset")
	return nil
}

func runServe(logLevel string) error {
	logger, zapLogger := obs.NewLogger(logLevel)
	defer func() { _ = zapLogger.Sync() }()
	baseCtx := obs.WithLogger(context.Background(), logger)

	cfg, manager, err := buildManager(logLevel)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.Initialize(); err != nil {
		logger.Error(err, "failed to initialize schema")
		return err
	}
	if err := manager.RunMigrations(); err != nil {
		logger.Error(err, "failed to run migrations")
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)
	refreshPoolMetrics := manager.RegisterMetrics(reg)

	gdb := manager.DB()

	tenantResolver := tenant.NewResolver(gdb)
	authenticator := principal.NewAuthenticator(gdb, []byte(cfg.JWTSigningSecret))

	adapters := adapter.NewRegistry()
	adapters.Register("mock", adapter.Traced("mock", adapter.NewMock()))
	adapters.Register("google_ad_manager", adapter.Traced("google_ad_manager", adapter.NewGoogleAdManager()))
	adapters.Register("kevel", adapter.Traced("kevel", adapter.NewKevel()))

	pushConfig := task.NewPushConfigStore(gdb)
	webhooks := task.NewWebhookSender(logger)
	webhooks.SetRecorder(metrics)
	tasks := task.NewService(gdb, pushConfig, webhooks)
	scheduler := task.NewScheduler(gdb, adapters, webhooks, pushConfig, logger)

	dispatcher := dispatch.NewDispatcher()
	dispatcher.SetRecorder(metrics)
	skillsService := skills.NewService(gdb, adapters, tasks)
	skillsService.RegisterAll(dispatcher)

	schedulerCtx, stopScheduler := context.WithCancel(baseCtx)
	defer stopScheduler()
	go scheduler.RunDeliveryScheduler(schedulerCtx, cfg.DeliveryWebhookInterval)
	go scheduler.RunStatusScheduler(schedulerCtx, cfg.StatusSchedulerInterval)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-schedulerCtx.Done():
				return
			case <-ticker.C:
				refreshPoolMetrics()
			}
		}
	}()

	mcpHandler := mcp.NewHandler(dispatcher, mcpRequestContext(tenantResolver, authenticator))
	mcpDebug := mcp.NewDebugEndpoints(manager)
	mcpMux := http.NewServeMux()
	mcpMux.Handle("/", mcp.NewRouter(mcpHandler, mcpDebug))
	mcpMux.HandleFunc("/healthz", healthzHandler)
	mcpMux.Handle("/metrics", obs.Handler(reg))

	taskManager := a2a.NewTaskManager(dispatcher, tasks, pushConfig)
	agentCard := a2a.BaseAgentCard("Standardized AdCP buying surface over pluggable ad-server backends.", cfg.A2ABaseURL)
	a2aServer, err := server.NewA2AServer(agentCard, taskManager)
	if err != nil {
		logger.Error(err, "failed to create A2A server")
		return err
	}
	a2aMux := http.NewServeMux()
	a2aMux.Handle("/", a2a.NewRouter(a2aServer, agentCard, tenantResolver, authenticator))
	a2aMux.HandleFunc("/healthz", healthzHandler)
	a2aMux.Handle("/metrics", obs.Handler(reg))

	mcpHTTPServer := &http.Server{Addr: cfg.MCPListenAddr, Handler: mcpMux}
	a2aHTTPServer := &http.Server{Addr: cfg.A2AListenAddr, Handler: a2aMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting MCP server", "addr", cfg.MCPListenAddr)
		if err := mcpHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("mcp server: %w", err)
		}
	}()
	go func() {
		logger.Info("starting A2A server", "addr", cfg.A2AListenAddr)
		if err := a2aHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("a2a server: %w", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error(err, "server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()
	if err := mcpHTTPServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "error shutting down MCP server")
	}
	if err := a2aHTTPServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "error shutting down A2A server")
	}
	return nil
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// mcpRequestContext adapts tenant/principal resolution to mcp.RequestContext.
// Each HTTP request mints a fresh context id, since MCP tool calls have no
// JSON-RPC-level context id of their own to reuse (spec.md §4.10).
func mcpRequestContext(tenantResolver *tenant.Resolver, authenticator *principal.Authenticator) mcp.RequestContext {
	return func(r *http.Request) (*tenant.Context, *principal.Identity, error, string) {
		ctx := r.Context()

		tc, err := tenantResolver.Resolve(ctx, r)
		if err != nil {
			return nil, nil, nil, "ctx_" + uuid.NewString()
		}

		var ident *principal.Identity
		var authErr error
		if token, ok := principal.ExtractToken(r); ok {
			ident, authErr = authenticator.Authenticate(ctx, token, tc)
			if authErr != nil {
				ident = nil
			}
		}

		return tc, ident, authErr, "ctx_" + uuid.NewString()
	}
}
