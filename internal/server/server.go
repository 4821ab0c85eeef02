// Package server provides the HTTP server and routing for the portfolio
// service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	accountshandlers "github.com/aristath/folio/internal/modules/accounts/handlers"
	commandhandlers "github.com/aristath/folio/internal/modules/command/handlers"
	positionshandlers "github.com/aristath/folio/internal/modules/positions/handlers"
	synchandlers "github.com/aristath/folio/internal/modules/sync/handlers"
	"github.com/aristath/folio/internal/observability"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	Metrics   *observability.Metrics
	Command   *commandhandlers.Handler
	Positions *positionshandlers.Handler
	Accounts  *accountshandlers.Handler
	Sync      *synchandlers.Handler
	System    *SystemHandlers
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	cfg     *config.Config
	metrics *observability.Metrics
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		cfg:     cfg.Cfg,
		metrics: cfg.Metrics,
	}

	s.setupMiddleware(cfg.Cfg.DevMode, cfg.Cfg.CORSOrigins)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool, corsOrigins []string) {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging and request counting
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)
	if cfg.Metrics != nil {
		s.router.Handle("/metrics", cfg.Metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		cfg.Command.RegisterRoutes(r)
		cfg.Positions.RegisterRoutes(r)
		cfg.Accounts.RegisterRoutes(r)
		cfg.Sync.RegisterRoutes(r)
		if cfg.System != nil {
			cfg.System.RegisterRoutes(r)
		}
	})
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		}
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
