package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Turn outcomes recorded on avatarbot.turns
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Upstream stages recorded on avatarbot.upstream.errors
const (
	StageChat   = "chat"
	StageSpeech = "speech"
)

// Metrics holds the instruments the websocket handler reports to
type Metrics struct {
	turns           metric.Int64Counter
	turnDuration    metric.Float64Histogram
	connections     metric.Int64UpDownCounter
	upstreamFailure metric.Int64Counter
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	turns, err := meter.Int64Counter("avatarbot.turns",
		metric.WithDescription("Completed websocket turns by outcome"))
	if err != nil {
		return nil, fmt.Errorf("turns counter: %w", err)
	}

	turnDuration, err := meter.Float64Histogram("avatarbot.turn.duration",
		metric.WithDescription("Time from receiving a question to sending its answer"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("turn duration histogram: %w", err)
	}

	connections, err := meter.Int64UpDownCounter("avatarbot.connections.active",
		metric.WithDescription("Open websocket connections"))
	if err != nil {
		return nil, fmt.Errorf("connections counter: %w", err)
	}

	upstreamFailure, err := meter.Int64Counter("avatarbot.upstream.errors",
		metric.WithDescription("Failed chat or speech requests"))
	if err != nil {
		return nil, fmt.Errorf("upstream errors counter: %w", err)
	}

	return &Metrics{
		turns:           turns,
		turnDuration:    turnDuration,
		connections:     connections,
		upstreamFailure: upstreamFailure,
	}, nil
}

// NoopMetrics returns instruments that record nothing
func NoopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("avatarbot"))
	if err != nil {
		panic(err)
	}
	return m
}

// RecordTurn counts one turn and its latency
func (m *Metrics) RecordTurn(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.turns.Add(ctx, 1, attrs)
	m.turnDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ConnectionOpened increments the active connection gauge
func (m *Metrics) ConnectionOpened(ctx context.Context) {
	m.connections.Add(ctx, 1)
}

// ConnectionClosed decrements the active connection gauge
func (m *Metrics) ConnectionClosed(ctx context.Context) {
	m.connections.Add(ctx, -1)
}

// UpstreamError counts a failed call to the chat or speech API
func (m *Metrics) UpstreamError(ctx context.Context, stage string) {
	m.upstreamFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
