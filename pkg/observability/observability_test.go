package observability

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"avatarbot/backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.ConnectionOpened(ctx)
	m.ConnectionOpened(ctx)
	m.ConnectionClosed(ctx)
	m.RecordTurn(ctx, OutcomeSuccess, 150*time.Millisecond)
	m.RecordTurn(ctx, OutcomeError, time.Second)
	m.UpstreamError(ctx, StageSpeech)

	data := collect(t, reader)

	conns, ok := data["avatarbot.connections.active"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, conns.DataPoints, 1)
	assert.Equal(t, int64(1), conns.DataPoints[0].Value)

	turns, ok := data["avatarbot.turns"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, turns.DataPoints, 2)

	hist, ok := data["avatarbot.turn.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)

	upstream, ok := data["avatarbot.upstream.errors"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, upstream.DataPoints, 1)
	stage, _ := upstream.DataPoints[0].Attributes.Value("stage")
	assert.Equal(t, StageSpeech, stage.AsString())
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(config.ObservabilityConfig{}, "avatarbot", Options{})
	require.NoError(t, err)
	require.NotNil(t, p.Metrics)
	assert.Nil(t, p.Handler())

	// no-op instruments must be safe to use
	p.Metrics.RecordTurn(context.Background(), OutcomeSuccess, time.Millisecond)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupExposesPrometheus(t *testing.T) {
	var traces bytes.Buffer
	p, err := Setup(config.ObservabilityConfig{MetricsEnabled: true, TracingEnabled: true}, "avatarbot", Options{TraceWriter: &traces})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	p.Metrics.RecordTurn(context.Background(), OutcomeSuccess, 20*time.Millisecond)

	handler := p.Handler()
	require.NotNil(t, handler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "avatarbot_turns_total")
	assert.Contains(t, string(body), "go_goroutines")
}
