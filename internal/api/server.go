// Package api provides the read-only HTTP API server for chatvault.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wesm/chatvault/internal/config"
	"github.com/wesm/chatvault/internal/query"
)

// CurrentChannelHeader carries the channel ID of a page or message
// response, so clients can highlight the channel being viewed.
const CurrentChannelHeader = "X-Current-Channel-Id"

// RequestTimeout bounds each request, including time spent waiting for a
// query worker.
const RequestTimeout = 60 * time.Second

// Server represents the HTTP API server.
type Server struct {
	cfg         *config.Config
	engine      query.Engine
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new API server. The engine is expected to bound its
// own concurrency (see query.PooledEngine).
func NewServer(cfg *config.Config, engine query.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}
	s.router = s.setupRouter()
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(RequestTimeout))

	// CORS (config-driven; disabled when no origins configured)
	corsConfig := DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.cfg.Server.CORSOrigins
	r.Use(CORSMiddleware(corsConfig))

	rps, burst := s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst
	if rps <= 0 || burst <= 0 {
		rps, burst = 10, 20
	}
	s.rateLimiter = NewRateLimiter(rps, burst)
	r.Use(RateLimitMiddleware(s.rateLimiter))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)

		r.Get("/channels", s.handleListChannels)
		r.Get("/channels/{id}", s.handleGetChannel)
		r.Get("/channels/{id}/pages/{page}", s.handleGetPage)

		r.Get("/messages/{id}", s.handleGoToMessage)

		r.Get("/search", s.handleSearch)
	})

	return r
}

// Addr returns the listen address derived from the configuration.
func (s *Server) Addr() string {
	bindAddr := s.cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	return net.JoinHostPort(bindAddr, strconv.Itoa(s.cfg.Server.APIPort))
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting API server", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Close()
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
