package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/solace/internal/adapter/upstream"
	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/events"
	"github.com/xiaot623/solace/internal/metrics"
	"github.com/xiaot623/solace/internal/policy"
	"github.com/xiaot623/solace/internal/repository"
	"github.com/xiaot623/solace/internal/service"
	server "github.com/xiaot623/solace/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the session gateway",
		Long:  "Start the HTTP command surface and the live session stream.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := setupLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("http_port", cfg.Server.HTTPPort).
		Str("database", cfg.Database.URL).
		Str("upstream", cfg.Upstream.Provider).
		Msg("starting solace")

	store, err := repository.NewSQLiteStore(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	dialer, err := upstream.NewDialer(cfg.Upstream, cfg.WebSocket)
	if err != nil {
		return fmt.Errorf("failed to initialize upstream: %w", err)
	}
	if dialer == nil {
		log.Warn().Msg("UPSTREAM_PROVIDER not set, sessions cannot be started")
	}

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	if cfg.Telemetry.Enabled {
		exporter, err := metrics.NewExporter(ctx, cfg.Telemetry)
		if err != nil {
			log.Warn().Err(err).Msg("metrics disabled")
		} else {
			recorder = exporter
		}
	}
	defer func() {
		if err := recorder.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to flush metrics")
		}
	}()

	var publisher events.Publisher = events.NoOpPublisher{}
	if cfg.Events.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.Events.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("session events disabled")
		} else {
			publisher = nats
		}
	}
	defer publisher.Close()

	svc := service.New(store, dialer, cfg,
		service.WithSafetyPolicy(policyEngine),
		service.WithMetrics(recorder),
		service.WithEvents(publisher),
	)

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()
	go svc.RunIdleMonitor(monitorCtx)

	e := server.NewServer(svc, cfg)
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info().Int("port", cfg.Server.HTTPPort).Msg("gateway started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("shutting down")
	cancelMonitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Live streams only return once their sessions are finalized.
	svc.Shutdown(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown http server gracefully")
	}

	log.Info().Msg("solace stopped")
	return nil
}
