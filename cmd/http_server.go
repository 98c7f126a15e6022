package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/admin"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/events"
	"github.com/frahmantamala/ops-portal/internal/dashboard"
	"github.com/frahmantamala/ops-portal/internal/finance"
	"github.com/frahmantamala/ops-portal/internal/identity"
	"github.com/frahmantamala/ops-portal/internal/metrics"
	"github.com/frahmantamala/ops-portal/internal/notify"
	"github.com/frahmantamala/ops-portal/internal/store/factory"
	"github.com/frahmantamala/ops-portal/internal/store/postgres"
	"github.com/frahmantamala/ops-portal/internal/tool"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/frahmantamala/ops-portal/internal/transport/middleware"
	"github.com/frahmantamala/ops-portal/internal/transport/rest"
	"github.com/frahmantamala/ops-portal/internal/user"
	"github.com/frahmantamala/ops-portal/internal/workflow"
	"github.com/frahmantamala/ops-portal/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

// Dependencies is everything a surface (REST server or CLI) needs, built
// once from the config around a single store handle.
type Dependencies struct {
	Config    *internal.Config
	Store     *factory.Handle
	Bus       *events.EventBus
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Identity  *identity.Service
	OIDC      *identity.OIDCProvider
	Workflow  *workflow.Service
	Tools     *tool.Service
	People    *user.Service
	Finance   *finance.Service
	Dashboard *dashboard.Service
	Admin     *admin.Service

	closeSink func()
}

func initializeDependencies(ctx context.Context, cfg *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()

	var m *metrics.Metrics
	if cfg.Observability.Metrics.Enabled {
		m = metrics.New()
	}

	handle, err := factory.Open(ctx, cfg.Store, lg, postgres.WithBCryptCost(cfg.Security.BCryptCost))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	adapter := handle.Adapter

	bus := events.NewEventBus(lg)
	sink, closeSink := notify.New(cfg.Notification, lg, m)
	notify.Subscribe(bus, sink, lg)

	var (
		provider *identity.OIDCProvider
		verifier identity.IDTokenVerifier
	)
	if cfg.Identity.OIDC.Enabled {
		provider, err = identity.NewOIDCProvider(ctx, cfg.Identity.OIDC)
		if err != nil {
			closeSink()
			_ = handle.Close()
			return nil, err
		}
		verifier = provider
	}

	tokens := identity.NewTokenIssuer(cfg.Security.SessionSecret, cfg.Security.SessionTTL)
	identitySvc := identity.NewService(adapter, tokens, verifier, identity.Config{
		AllowedDomains: cfg.Identity.AllowedDomains,
		BCryptCost:     cfg.Security.BCryptCost,
	}, m, lg)

	recorder := audit.NewRecorder(adapter, m, lg)

	return &Dependencies{
		Config:    cfg,
		Store:     handle,
		Bus:       bus,
		Metrics:   m,
		Logger:    lg,
		Identity:  identitySvc,
		OIDC:      provider,
		Workflow:  workflow.NewService(adapter, recorder, bus, m, lg),
		Tools:     tool.NewService(adapter, recorder, lg),
		People:    user.NewService(adapter, recorder, cfg.Security.BCryptCost, lg),
		Finance:   finance.NewService(adapter, recorder, bus, m, lg),
		Dashboard: dashboard.NewService(adapter, lg),
		Admin:     admin.NewService(adapter, recorder, bus, lg),
		closeSink: closeSink,
	}, nil
}

// Close drains in-flight notifications, then releases the sink and store.
func (d *Dependencies) Close(ctx context.Context) {
	if err := d.Bus.Wait(ctx); err != nil {
		d.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	d.closeSink()
	if err := d.Store.Close(); err != nil {
		d.Logger.Error("store close error", "error", err)
	}
}

func startHTTPServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		deps.Close(ctx)
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr, "store", deps.Store.Variant())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Close(ctx)
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		deps.Logger.Error("server shutdown error", "error", err)
	}
	deps.Close(shutdownCtx)

	deps.Logger.Info("server stopped")
	return nil
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	opts := rest.Options{
		AllowedOrigins: cfg.Server.Origins(),
		RequestTimeout: cfg.Server.RequestTimeout,
		OpenAPIPath:    cfg.Server.OpenAPIPath,
		LoginLimiter:   middleware.NewRateLimiter(cfg.Security.LoginRate, cfg.Security.LoginBurst),
		Resolver:       deps.Identity,
		Metrics:        deps.Metrics,
		MetricsPath:    cfg.Observability.Metrics.Path,
	}
	if cfg.Server.OpenAPIValidation {
		validator, err := middleware.LoadOpenAPIValidator(ctx, cfg.Server.OpenAPIPath, base)
		if err != nil {
			return nil, err
		}
		opts.Validator = validator
	}

	identityHandler := identity.NewHandler(deps.Identity, deps.OIDC, deps.Logger)
	identityHandler.SecureCookies = strings.HasPrefix(cfg.Server.BaseURL, "https://")

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:    rest.NewHealthHandler(deps.Store),
		Identity:  identityHandler,
		Tool:      tool.NewHandler(base, deps.Tools),
		Workflow:  workflow.NewHandler(deps.Workflow, deps.Logger),
		People:    user.NewHandler(deps.People),
		Finance:   finance.NewHandler(deps.Finance, deps.Logger),
		Dashboard: dashboard.NewHandler(deps.Dashboard, deps.Logger),
		Admin:     admin.NewHandler(deps.Admin, deps.Logger),
	}, opts, deps.Logger)
	return router, nil
}
