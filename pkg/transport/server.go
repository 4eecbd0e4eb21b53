package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/mcpengine/mcp-engine-go/pkg/engine"
	"github.com/mcpengine/mcp-engine-go/pkg/logging"
	"github.com/mcpengine/mcp-engine-go/pkg/observability"
)

// Server binds the engine to its HTTP surface: the MCP endpoint with
// its negotiated transports, the health probe, and optionally the
// metrics scrape endpoint.
type Server struct {
	engine  *engine.Engine
	logger  logging.Logger
	metrics *observability.Metrics

	addr          string
	endpoint      string
	serverName    string
	serverVersion string
	started       time.Time

	pruneInterval time.Duration
	idleAfter     time.Duration

	httpServer *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address, ":8080" by default.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.addr = addr }
}

// WithEndpoint sets the advertised base endpoint in the discovery
// document, for deployments behind a proxy.
func WithEndpoint(endpoint string) ServerOption {
	return func(s *Server) { s.endpoint = endpoint }
}

// WithServerLogger sets the structured logger.
func WithServerLogger(logger logging.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithServerMetrics attaches a metrics collector and exposes its
// scrape endpoint at /metrics.
func WithServerMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithServerInfo sets the identity shown in discovery and health
// responses.
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.serverName = name
		s.serverVersion = version
	}
}

// WithPruneInterval tunes the idle rate-limit bucket sweep.
func WithPruneInterval(interval, idleAfter time.Duration) ServerOption {
	return func(s *Server) {
		s.pruneInterval = interval
		s.idleAfter = idleAfter
	}
}

// NewServer creates a server for e.
func NewServer(e *engine.Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:        e,
		logger:        logging.Discard(),
		addr:          ":8080",
		serverName:    "mcp-engine",
		serverVersion: "dev",
		pruneInterval: 5 * time.Minute,
		idleAfter:     10 * time.Minute,
		started:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.endpoint == "" {
		s.endpoint = "localhost" + s.addr + "/mcp"
	}
	return s
}

// Router builds the HTTP routing table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// A genuine CORS preflight (OPTIONS with Origin and
	// Access-Control-Request-Method) is answered by this middleware
	// with an empty 200 plus the CORS headers; only a plain OPTIONS
	// reaches handleMCP and gets the discovery document.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Upgrade", "Connection", ProtocolVersionHeader},
		MaxAge:         3600,
	}))

	r.Get("/mcp", s.handleMCP)
	r.Post("/mcp", s.handleMCP)
	r.Options("/mcp", s.handleMCP)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully. An
// idle-bucket sweep runs alongside the listener.
func (s *Server) Start(ctx context.Context) error {
	s.started = time.Now()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server starting",
		logging.String("addr", s.addr),
		logging.String("endpoint", s.endpoint))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := s.engine.Limiter().PruneIdle(s.idleAfter); n > 0 {
					s.logger.Debug("pruned idle rate-limit buckets", logging.Int("count", n))
				}
			}
		}
	})

	return g.Wait()
}
