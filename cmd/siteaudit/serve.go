package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/whoisalfaz/site-audit/internal/api"
	"github.com/whoisalfaz/site-audit/internal/audit"
	"github.com/whoisalfaz/site-audit/internal/notify"
	"github.com/whoisalfaz/site-audit/internal/platform/config"
	"github.com/whoisalfaz/site-audit/internal/platform/logger"
	"github.com/whoisalfaz/site-audit/internal/platform/metrics"
	"github.com/whoisalfaz/site-audit/internal/platform/middleware"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	// A full audit can take three PageSpeed attempts plus backoff.
	writeTimeout    = 4 * time.Minute
	idleTimeout     = 2 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log, logFile := logger.NewWithFile(cfg.LogLevel, cfg.Log)
	defer func() { _ = logFile.Close() }()

	m := metrics.New()
	engine := newEngine(cfg, audit.WithRecorder(m), audit.WithLogger(log))

	outbox, err := notify.OpenOutbox(ctx, cfg.OutboxPath)
	if err != nil {
		return err
	}
	defer func() { _ = outbox.Close() }()

	if cfg.Brevo.APIKey == "" {
		log.Warn("BREVO_API_KEY is not set; queued notifications will be dropped")
	}
	brevo := notify.NewBrevo(cfg.Brevo, cfg.SiteBaseURL)
	dispatcher := notify.NewDispatcher(outbox,
		notify.Channels{Reports: brevo, Admin: brevo, Contacts: brevo},
		cfg.NotifyWorkers,
		notify.WithRecorder(m),
		notify.WithLogger(log),
	)

	// The dispatcher outlives the listener so in-flight deliveries can settle.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Go(func() { dispatcher.Run(dispatchCtx) })
	defer func() {
		stopDispatch()
		wg.Wait()
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newHandler(cfg, log, m, api.NewService(engine, outbox, log)),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "notify_workers", cfg.NotifyWorkers)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newHandler assembles the routes and the middleware chain.
func newHandler(cfg config.Config, log *slog.Logger, m *metrics.Metrics, svc *api.Service) http.Handler {
	mux := http.NewServeMux()
	limiter := middleware.NewClientLimiter(cfg.AuditRatePerMinute)
	api.NewTransport(svc, log).RegisterRoutes(mux, middleware.RateLimit(limiter, log))
	mux.Handle("GET /metrics", m.Handler())

	return middleware.RequestID(middleware.Logging(log)(middleware.Recover(log)(mux)))
}
