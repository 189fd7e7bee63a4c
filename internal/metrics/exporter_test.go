package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xiaot623/solace/internal/config"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestExporterRecordsSessions(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := newExporter(provider)
	require.NoError(t, err)
	defer exp.Close(ctx)

	exp.SessionStarted(ctx, "anxiety")
	exp.SessionFinalized(ctx, SessionMetrics{Status: "ended", Emotion: "anxiety", Duration: 90 * time.Second, Turns: 4, Saved: true})
	exp.SessionFinalized(ctx, SessionMetrics{Status: "interrupted", Emotion: "anxiety", Duration: time.Second, Turns: 1, Saved: false})

	data := collect(t, reader)

	started, ok := data["solace_sessions_started_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, started.DataPoints, 1)
	assert.Equal(t, int64(1), started.DataPoints[0].Value)

	total, ok := data["solace_sessions_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, total.DataPoints, 2)

	failures, ok := data["solace_session_persistence_failures_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)

	turns, ok := data["solace_session_turns"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, turns.DataPoints, 2)
}

func TestNewExporterDisabled(t *testing.T) {
	_, err := NewExporter(context.Background(), config.Telemetry{Enabled: false})
	assert.Error(t, err)
}

func TestNoOpRecorder(t *testing.T) {
	var r Recorder = NoOpRecorder{}
	r.SessionStarted(context.Background(), "anxiety")
	r.SessionFinalized(context.Background(), SessionMetrics{})
	assert.NoError(t, r.Close(context.Background()))
}
