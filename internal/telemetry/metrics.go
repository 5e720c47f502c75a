package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	ChatRequests        metric.Int64Counter
	IndexBuilds         metric.Int64Counter
	IndexBuildDuration  metric.Float64Histogram
	UpstreamCalls       metric.Int64Counter
	UpstreamDuration    metric.Float64Histogram
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("docchat-service")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chatRequests, err := meter.Int64Counter(
		"chat.requests.total",
		metric.WithDescription("Chat requests per tenant and outcome"),
	)
	if err != nil {
		return nil, err
	}

	indexBuilds, err := meter.Int64Counter(
		"index.builds.total",
		metric.WithDescription("Tenant index builds, including skipped ones"),
	)
	if err != nil {
		return nil, err
	}

	indexBuildDuration, err := meter.Float64Histogram(
		"index.build.duration",
		metric.WithDescription("Tenant index build duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	upstreamCalls, err := meter.Int64Counter(
		"upstream.calls.total",
		metric.WithDescription("Embedding and language model calls"),
	)
	if err != nil {
		return nil, err
	}

	upstreamDuration, err := meter.Float64Histogram(
		"upstream.call.duration",
		metric.WithDescription("Embedding and language model call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		ChatRequests:        chatRequests,
		IndexBuilds:         indexBuilds,
		IndexBuildDuration:  indexBuildDuration,
		UpstreamCalls:       upstreamCalls,
		UpstreamDuration:    upstreamDuration,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)

	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordChat records a chat request outcome for a tenant
func (m *Metrics) RecordChat(ctx context.Context, tenantID, outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("outcome", outcome),
	))
}

// RecordIndexBuild records a build attempt; built is false when an existing index was reused
func (m *Metrics) RecordIndexBuild(ctx context.Context, tenantID string, built bool, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.Bool("index.built", built),
	)
	m.IndexBuilds.Add(ctx, 1, attrs)
	if built {
		m.IndexBuildDuration.Record(ctx, duration, attrs)
	}
}

// RecordUpstreamCall records one embedding or generation call
func (m *Metrics) RecordUpstreamCall(ctx context.Context, provider, op string, success bool, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("upstream.provider", provider),
		attribute.String("upstream.op", op),
		attribute.Bool("upstream.success", success),
	)
	m.UpstreamCalls.Add(ctx, 1, attrs)
	m.UpstreamDuration.Record(ctx, duration, attrs)
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}
