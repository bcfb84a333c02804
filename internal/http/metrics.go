// Package http provides HTTP API with metrics instrumentation.
package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/copilotd/internal/http"

// HTTPMetrics holds all HTTP and sync socket metrics.
type HTTPMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
	turnsTotal     metric.Int64Counter
	activeSockets  metric.Int64UpDownCounter
	syncFrames     metric.Int64Counter
}

// NewHTTPMetrics creates a new HTTPMetrics instance.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &HTTPMetrics{
		meter:  otel.Meter(httpInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *HTTPMetrics) init() {
	var err error

	// Total requests by endpoint, method, and status
	m.requestsTotal, err = m.meter.Int64Counter(
		"copilotd.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method (GET, POST), endpoint (/api/copilot/chat, etc.), and status code. Use rate() for request throughput."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	// Request duration histogram
	m.requestDur, err = m.meter.Float64Histogram(
		"copilotd.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, endpoint, and status. Use histogram_quantile for P50/P95/P99 latency. Chat requests include the full model round trip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	// Response size histogram
	m.responseSize, err = m.meter.Int64Histogram(
		"copilotd.http.response_size_bytes",
		metric.WithDescription("HTTP response body size in bytes, labeled by method, endpoint, and status. Large responses may indicate inefficient payloads."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 5000, 10000, 50000, 100000, 500000),
	)
	if err != nil {
		m.logger.Warn("failed to create response size histogram", zap.Error(err))
	}

	// Active requests gauge
	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"copilotd.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}

	// Completed chat turns by classified intent
	m.turnsTotal, err = m.meter.Int64Counter(
		"copilotd.copilot.turns_total",
		metric.WithDescription("Completed chat turns labeled by classified intent (greeting, modify, explain, scenario). Use to spot routing drift after prompt or model changes."),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		m.logger.Warn("failed to create turns counter", zap.Error(err))
	}

	// Active sync socket connections
	m.activeSockets, err = m.meter.Int64UpDownCounter(
		"copilotd.sync.active_connections",
		metric.WithDescription("Number of currently connected calculator sync sockets"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active sockets gauge", zap.Error(err))
	}

	// Inbound sync frames by type
	m.syncFrames, err = m.meter.Int64Counter(
		"copilotd.sync.frames_total",
		metric.WithDescription("Inbound sync socket frames labeled by envelope type (STATE_UPDATE, etc.) or 'invalid' for undecodable payloads."),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		m.logger.Warn("failed to create sync frames counter", zap.Error(err))
	}
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path()
			method := req.Method

			// Increment active requests
			if m.activeRequests != nil {
				m.activeRequests.Add(req.Context(), 1)
			}

			// Process request
			err := next(c)

			// Record metrics after request completes
			duration := time.Since(start)
			status := c.Response().Status
			size := c.Response().Size

			attrs := []attribute.KeyValue{
				attribute.String("method", method),
				attribute.String("endpoint", normalizePath(path)),
				attribute.Int("status", status),
			}

			ctx := req.Context()

			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			}

			if m.requestDur != nil {
				m.requestDur.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
			}

			if m.responseSize != nil {
				m.responseSize.Record(ctx, size, metric.WithAttributes(attrs...))
			}

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, -1)
			}

			return err
		}
	}
}

// recordTurn counts one completed chat turn under its classified intent.
func (m *HTTPMetrics) recordTurn(ctx context.Context, intent string) {
	if m.turnsTotal == nil {
		return
	}
	m.turnsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", intent)))
}

// socketOpened increments the active sync connection gauge.
func (m *HTTPMetrics) socketOpened(ctx context.Context) {
	if m.activeSockets != nil {
		m.activeSockets.Add(ctx, 1)
	}
}

// socketClosed decrements the active sync connection gauge.
func (m *HTTPMetrics) socketClosed(ctx context.Context) {
	if m.activeSockets != nil {
		m.activeSockets.Add(ctx, -1)
	}
}

// recordFrame counts one inbound sync frame by envelope type.
func (m *HTTPMetrics) recordFrame(ctx context.Context, frameType string) {
	if m.syncFrames == nil {
		return
	}
	m.syncFrames.Add(ctx, 1, metric.WithAttributes(attribute.String("type", frameType)))
}

// normalizePath replaces dynamic path segments with placeholders to prevent
// metric cardinality explosion.
//
// Current behavior: Returns path as-is because copilotd uses only fixed routes:
//   - /health
//   - /api/copilot/chat
//   - /ws/copilot/sync
//
// If parameterized routes are added (per-session endpoints, for example),
// replace the parameter segments with placeholders here before recording.
// Without normalization each unique path becomes a metric label, and a
// label per session ID means a time series per session.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
