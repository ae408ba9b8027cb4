// Package server provides the MCP server for the parking tools.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/parkmcp/pkg/tools"
	"github.com/NERVsystems/parkmcp/pkg/tools/prompts"
	"github.com/NERVsystems/parkmcp/pkg/version"
)

const (
	// ServerName is the name of the MCP server
	ServerName = "parkmcp"

	// ShutdownTimeout bounds graceful shutdown of the SSE transport
	ShutdownTimeout = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records tool calls in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// Server encapsulates the MCP server with the parking tools.
type Server struct {
	srv     *server.MCPServer
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewServer creates the MCP server and registers every tool and prompt in
// registry.
func NewServer(registry *tools.Registry, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}

	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/NERVsystems/parkmcp/pkg/server")
	}

	s.logger.Info("initializing parking MCP server",
		"name", ServerName,
		"version", version.BuildVersion)

	serverOpts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(loggingMiddleware(s.logger)),
		server.WithToolHandlerMiddleware(tracingMiddleware(s.tracer)),
	}
	if s.metrics != nil {
		serverOpts = append(serverOpts, server.WithToolHandlerMiddleware(s.metrics.Middleware))
	}

	s.srv = server.NewMCPServer(ServerName, version.BuildVersion, serverOpts...)

	registry.RegisterTools(s.srv)
	prompts.RegisterParkingPrompts(s.srv)

	return s, nil
}

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.srv
}

// RunStdio serves the protocol over in/out until ctx is canceled or the
// input is closed.
func (s *Server) RunStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio")
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunSSE serves the protocol over HTTP server-sent events on addr until ctx
// is canceled.
func (s *Server) RunSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.srv, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving MCP over SSE", "address", addr)
		if err := sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("SSE server shut down")
	return nil
}
