package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "docchat-test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestMetricsRecording(t *testing.T) {
	m, err := InitMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordRequest("POST", "/chat", "success", 0.12)
		m.RecordChat(context.Background(), "acme", "ok")
		m.RecordIndexBuild(context.Background(), "acme", true, 1.5)
		m.RecordUpstreamCall(context.Background(), "gemini", "embed", false, 0.3)
		m.RecordCircuitBreakerState("gemini", "open")
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/health", "success", 0)
		m.RecordChat(context.Background(), "acme", "ok")
		m.RecordIndexBuild(context.Background(), "acme", false, 0)
		m.RecordUpstreamCall(context.Background(), "openai", "generate", true, 0)
		m.RecordCircuitBreakerState("openai", "closed")
	})
}
