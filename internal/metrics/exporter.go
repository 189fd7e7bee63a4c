package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xiaot623/solace/internal/config"
)

const (
	serviceName    = "solace"
	serviceVersion = "1.0.0"
)

// Exporter records session metrics on an OTel meter provider.
type Exporter struct {
	provider          *sdkmetric.MeterProvider
	sessionsStarted   metric.Int64Counter
	sessionsTotal     metric.Int64Counter
	durationHist      metric.Float64Histogram
	turnsHist         metric.Int64Histogram
	persistenceErrors metric.Int64Counter
}

var _ Recorder = (*Exporter)(nil)

// NewExporter creates an exporter that pushes to an OTel collector.
func NewExporter(ctx context.Context, cfg config.Telemetry) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return newExporter(provider)
}

func newExporter(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	meter := provider.Meter(serviceName)

	sessionsStarted, err := meter.Int64Counter(
		"solace_sessions_started_total",
		metric.WithDescription("Voice sessions started"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions started counter: %w", err)
	}

	sessionsTotal, err := meter.Int64Counter(
		"solace_sessions_total",
		metric.WithDescription("Voice sessions finalized, by terminal status"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"solace_session_duration_seconds",
		metric.WithDescription("Session duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	turnsHist, err := meter.Int64Histogram(
		"solace_session_turns",
		metric.WithDescription("Number of turns per session"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns histogram: %w", err)
	}

	persistenceErrors, err := meter.Int64Counter(
		"solace_session_persistence_failures_total",
		metric.WithDescription("Finalized sessions whose record could not be saved"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persistence failures counter: %w", err)
	}

	return &Exporter{
		provider:          provider,
		sessionsStarted:   sessionsStarted,
		sessionsTotal:     sessionsTotal,
		durationHist:      durationHist,
		turnsHist:         turnsHist,
		persistenceErrors: persistenceErrors,
	}, nil
}

func (e *Exporter) SessionStarted(ctx context.Context, emotion string) {
	e.sessionsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("emotion", emotion)))
}

func (e *Exporter) SessionFinalized(ctx context.Context, m SessionMetrics) {
	opt := metric.WithAttributes(
		attribute.String("status", m.Status),
		attribute.String("emotion", m.Emotion),
	)

	e.sessionsTotal.Add(ctx, 1, opt)
	e.durationHist.Record(ctx, m.Duration.Seconds(), opt)
	e.turnsHist.Record(ctx, int64(m.Turns), opt)
	if !m.Saved {
		e.persistenceErrors.Add(ctx, 1, opt)
	}
}

// Close shuts down the provider and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
