package ai

import (
	"context"
	"errors"
	"time"

	"docchat-service/internal/logger"
	"docchat-service/internal/telemetry"
	"docchat-service/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// GuardConfig tunes the protection around one upstream client.
type GuardConfig struct {
	Name              string
	Timeout           time.Duration // per attempt
	MaxRetries        int
	Backoff           time.Duration // first retry delay, doubled per attempt
	RequestsPerMinute int           // 0 disables the limiter
	// Retryable decides whether a failed attempt is worth repeating.
	// Nil retries everything except cancellation.
	Retryable func(error) bool
}

type guard struct {
	cfg     GuardConfig
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

func newGuard(cfg GuardConfig, metrics *telemetry.Metrics) *guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &guard{cfg: cfg, breaker: breaker, limiter: limiter, metrics: metrics}
}

// call runs fn with retries and wraps the final failure as an UpstreamError.
func (g *guard) call(ctx context.Context, op string, fn func(context.Context) error) error {
	tracer := otel.Tracer("docchat-service/ai")
	ctx, span := tracer.Start(ctx, "upstream."+op)
	defer span.End()
	span.SetAttributes(attribute.String("upstream.provider", g.cfg.Name))

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.cfg.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				return g.fail(span, op, lastErr)
			case <-time.After(delay):
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return g.fail(span, op, err)
		}

		start := time.Now()
		_, err := g.breaker.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
			return nil, fn(callCtx)
		})
		g.metrics.RecordUpstreamCall(ctx, g.cfg.Name, op, err == nil, time.Since(start).Seconds())
		if err == nil {
			span.SetAttributes(attribute.Int("upstream.attempts", attempt+1))
			return nil
		}

		lastErr = err
		logger.Warn("Upstream call failed", "provider", g.cfg.Name, "op", op, "attempt", attempt+1, "error", err)
		if !g.retryable(ctx, err) {
			break
		}
	}

	return g.fail(span, op, lastErr)
}

func (g *guard) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if g.cfg.Retryable != nil {
		return g.cfg.Retryable(err)
	}
	return true
}

func (g *guard) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &models.UpstreamError{Provider: g.cfg.Name, Op: op, Err: err}
}
