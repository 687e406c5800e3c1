package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"joinnow/internal/application/relay"
	"joinnow/internal/common/config"
	"joinnow/internal/common/database"
	"joinnow/internal/common/logger"
	"joinnow/internal/common/observability"
	"joinnow/internal/common/session"
	"joinnow/internal/web"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the application wizard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

type sessionBackend struct {
	store   session.Store
	health  func(ctx context.Context) error
	closeFn func() error
}

func newSessionBackend(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (*sessionBackend, error) {
	if cfg.Session.Backend != config.SessionBackendRedis {
		mem := session.NewMemoryStore()
		go mem.RunJanitor(ctx, config.GetDuration(cfg.Session.JanitorInterval))
		return &sessionBackend{store: mem, closeFn: func() error { return nil }}, nil
	}

	var rc *database.RedisClient
	err := retryWithBackoff(func() error {
		var err error
		rc, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rc.Ping(ctx)
	}, 5, time.Second, zapLog, "Redis connection")
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		return nil, err
	}
	zapLog.Info("Redis connected", zap.String("address", cfg.Database.Redis.Address))

	return &sessionBackend{
		store:   session.NewRedisStore(rc.GetClient(), cfg.Session.KeyPrefix),
		health:  rc.Ping,
		closeFn: rc.Close,
	}, nil
}

func runServe(parent context.Context, cfg *config.Config) error {
	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting joinnow", zap.String("config", cfg.String()), zap.String("version", version))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var obs *observability.Observability
	metricsPath := ""
	if cfg.Metrics.Enabled {
		obs = observability.New(cfg.App.Name, nil, log)
		defer obs.Shutdown()
		metricsPath = cfg.Metrics.Path
	}

	backend, err := newSessionBackend(ctx, cfg, zapLog)
	if err != nil {
		return fmt.Errorf("session store init failed: %w", err)
	}
	defer func() { _ = backend.closeFn() }()

	relayClient, err := relay.NewClient(relay.ClientOptions{
		Config: relayConfig(cfg),
		Logger: log.With(map[string]interface{}{"component": "relay"}),
	})
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.ServerOptions{
		Sessions: session.NewManager(session.ManagerOptions{
			Store:  backend.store,
			TTL:    config.GetDuration(cfg.Session.TTL),
			Logger: log,
		}),
		Submitter:     relayClient,
		Logger:        log.With(map[string]interface{}{"component": "web"}),
		Observability: obs,
		Health:        backend.health,
		CookieName:    cfg.Session.CookieName,
		CookieSecure:  cfg.Session.CookieSecure,
		SubmitTimeout: config.GetDuration(cfg.Relay.Timeout),
		MetricsPath:   metricsPath,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.GetDuration(cfg.Server.IdleTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	zapLog.Info("Server stopped")
	return nil
}
