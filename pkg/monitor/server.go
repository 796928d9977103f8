package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/telemetry/health"
	"gra-pca/sentinel/pkg/telemetry/tracing"
)

// Route paths served besides the configurable metrics path.
const (
	PathWebSocket = "/ws"
	PathHealthz   = "/healthz"
	PathReadyz    = "/readyz"
	PathVersion   = "/version"
)

// ErrServerRunning is returned by Start on a server that is already serving.
var ErrServerRunning = errors.New("monitor server is already running")

// BuildInfo is reported on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetricsHandler mounts h on path.
func WithMetricsHandler(path string, h http.Handler) ServerOption {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
	}
}

// WithHealthChecker serves liveness and readiness from checker.
func WithHealthChecker(checker *health.Checker) ServerOption {
	return func(s *Server) {
		if checker != nil {
			s.checker = checker
		}
	}
}

// WithServerTracer wraps every request in a server span.
func WithServerTracer(tracer trace.Tracer) ServerOption {
	return func(s *Server) { s.tracer = tracer }
}

// WithServerLogger sets the logger. Defaults to slog.Default().
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuildInfo sets what /version reports.
func WithBuildInfo(info BuildInfo) ServerOption {
	return func(s *Server) { s.build = info }
}

// Server is the monitoring HTTP server.
type Server struct {
	config      config.MonitorConfig
	broadcaster *Broadcaster
	metricsPath string
	metrics     http.Handler
	checker     *health.Checker
	keys        *keyValidator
	tracer      trace.Tracer
	logger      *slog.Logger
	build       BuildInfo

	mu        sync.Mutex
	running   bool
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewServer creates a server for broadcaster. Zero config fields take the
// package config defaults.
func NewServer(cfg config.MonitorConfig, broadcaster *Broadcaster, opts ...ServerOption) *Server {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = config.DefaultMonitorListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = config.DefaultMonitorReadTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = config.DefaultMonitorShutdownTimeout
	}
	s := &Server{
		config:      cfg,
		broadcaster: broadcaster,
		checker:     health.New(0),
		logger:      slog.Default(),
		build:       BuildInfo{Version: "dev"},
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "monitor")
	return s
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.broadcaster != nil {
		mux.Handle(PathWebSocket, s.broadcaster)
	}
	if s.metrics != nil {
		path := s.metricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.metrics)
	}
	mux.Handle(PathHealthz, s.checker.LivenessHandler())
	mux.Handle(PathReadyz, s.checker.ReadinessHandler())
	mux.Handle(PathVersion, health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))

	var h http.Handler = mux
	if s.keys != nil {
		h = requireAPIKey(s.keys, s.logger, h)
	}
	h = logRequests(s.logger, h)
	if s.tracer != nil {
		h = tracing.Middleware(s.tracer, h)
	}
	h = requestID(h)
	h = recoverPanics(s.logger, h)
	return h
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails, then shuts down
// gracefully. A clean shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerRunning
	}
	s.running = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitor server listening", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	s.logger.Info("monitor server shutting down", "timeout", s.config.ShutdownTimeout)
	// Websocket connections are hijacked and invisible to Shutdown.
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during monitor shutdown", "error", err)
		if serveErr == nil {
			serveErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("monitor server stopped")
	return serveErr
}
