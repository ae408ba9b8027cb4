package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics collects per-tool call counts and latencies.
type Metrics struct {
	gatherer prometheus.Gatherer
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics registers the tool metrics on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkmcp_tool_calls_total",
				Help: "Total number of tool calls",
			},
			[]string{"tool", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parkmcp_tool_call_duration_seconds",
				Help:    "Tool call latency in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parkmcp_tool_calls_in_flight",
				Help: "Number of tool calls currently running",
			},
		),
	}
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records every tool call.
func (m *Metrics) Middleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tool := req.Params.Name
		start := time.Now()

		m.inFlight.Inc()
		defer m.inFlight.Dec()

		result, err := next(ctx, req)

		m.calls.WithLabelValues(tool, outcome(result, err)).Inc()
		m.duration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
		return result, err
	}
}

// tracingMiddleware wraps each tool call in a span.
func tracingMiddleware(tracer trace.Tracer) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx, span := tracer.Start(ctx, "tool "+req.Params.Name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("mcp.tool", req.Params.Name)),
			)
			defer span.End()

			if id, ok := callIDFromContext(ctx); ok {
				span.SetAttributes(attribute.String("mcp.call_id", id))
			}

			result, err := next(ctx, req)
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result != nil && result.IsError:
				span.SetStatus(codes.Error, "tool returned an error result")
			default:
				span.SetStatus(codes.Ok, "")
			}
			return result, err
		}
	}
}

type callIDKey struct{}

func callIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callIDKey{}).(string)
	return id, ok
}

// loggingMiddleware assigns each call an id and logs its outcome.
func loggingMiddleware(logger *slog.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id := uuid.NewString()
			ctx = context.WithValue(ctx, callIDKey{}, id)
			log := logger.With("call_id", id, "tool", req.Params.Name)

			log.DebugContext(ctx, "tool call received")
			start := time.Now()
			result, err := next(ctx, req)

			log.InfoContext(ctx, "tool call finished",
				"outcome", outcome(result, err),
				"duration", time.Since(start))
			return result, err
		}
	}
}

func outcome(result *mcp.CallToolResult, err error) string {
	if err != nil || (result != nil && result.IsError) {
		return outcomeError
	}
	return outcomeOK
}
