// Package server provides the HTTP server and routing for Harmonia.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/harmonia/internal/config"
	"github.com/aristath/harmonia/internal/database"
	"github.com/aristath/harmonia/internal/events"
	chartshandlers "github.com/aristath/harmonia/internal/modules/charts/handlers"
	scenariohandlers "github.com/aristath/harmonia/internal/modules/scenario/handlers"
	"github.com/aristath/harmonia/internal/modules/strategies"
	"github.com/aristath/harmonia/internal/work"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	ResultsDB *database.DB
	Config    *config.Config
	Bus       *events.Bus
	Processor *work.Processor

	ScenarioHandlers *scenariohandlers.Handler
	ChartsHandlers   *chartshandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers
	streamHandler  *RunStreamHandler

	scenarioHandlers *scenariohandlers.Handler
	chartsHandlers   *chartshandlers.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		log:              cfg.Log.With().Str("component", "server").Logger(),
		cfg:              cfg.Config,
		systemHandlers:   NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.ResultsDB, cfg.Processor),
		streamHandler:    NewRunStreamHandler(cfg.Bus, cfg.Log),
		scenarioHandlers: cfg.ScenarioHandlers,
		chartsHandlers:   cfg.ChartsHandlers,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Live sweep progress stream. Mounted outside the timeout middleware
	// used by the sweep routes since connections are long-lived.
	s.router.Get("/api/runs/stream", s.streamHandler.ServeHTTP)

	s.router.Get("/api/strategies", s.handleStrategies)

	s.scenarioHandlers.RegisterRoutes(s.router)
	s.chartsHandlers.RegisterRoutes(s.router)

	s.router.Route("/api/system", func(r chi.Router) {
		r.Get("/status", s.systemHandlers.HandleSystemStatus)
		r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
		r.Get("/disk", s.systemHandlers.HandleDiskUsage)
		r.Post("/work/trigger", s.systemHandlers.HandleTriggerWork)
	})
}

// handleHealth is the liveness endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleStrategies lists the registered intervention strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	names := strategies.Names()
	fmt.Fprint(w, `{"strategies":[`)
	for i, name := range names {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, "%q", name)
	}
	fmt.Fprint(w, `]}`)
}

// Start starts the HTTP server. Blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

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
