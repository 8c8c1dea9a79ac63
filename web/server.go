// Package web exposes the cropwatch HTTP API: fresh readings, range
// evaluations against plant profiles, pump activation and service status.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Option configura o servidor
type Option func(*Server)

// WithPumps enables POST /pumps/{name} and GET /queue
func WithPumps(pumps PumpController, queue QueueStatsProvider) Option {
	return func(s *Server) {
		s.pumps = pumps
		s.queue = queue
	}
}

// WithMetrics enables GET /metrics and per-route request metrics
func WithMetrics(observer RequestObserver) Option {
	return func(s *Server) {
		s.metrics = observer
	}
}

// Server encapsulates the HTTP server configuration and dependencies
type Server struct {
	config          *Config
	monitor         Monitor
	pumps           PumpController
	queue           QueueStatsProvider
	metrics         RequestObserver
	router          chi.Router
	server          *http.Server
	routes          map[string]string
	ctx             context.Context
	systemStartTime time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(ctx context.Context, mon Monitor, config *Config, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:          config,
		monitor:         mon,
		ctx:             ctx,
		systemStartTime: time.Now(),
		routes: map[string]string{
			"GET /":              "Informações do serviço",
			"GET /health":        "Status de saúde do sistema",
			"GET /readings":      "Leitura atual dos sensores",
			"GET /profiles":      "Perfis de plantas configurados",
			"GET /evaluation":    "Avaliação das leituras (?profile=)",
			"GET /pumps":         "Bombas configuradas",
			"POST /pumps/{name}": "Aciona uma bomba",
			"GET /queue":         "Status da fila de comandos",
			"GET /metrics":       "Métricas Prometheus",
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.sendErrorResponse(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.sendErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/readings", s.handleReadings)
	r.Get("/profiles", s.handleProfiles)
	r.Get("/evaluation", s.handleEvaluation)
	r.Get("/pumps", s.handlePumps)
	r.Post("/pumps/{name}", s.handleActivatePump)
	r.Get("/queue", s.handleQueue)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Routes returns the configured routes and their descriptions
func (s *Server) Routes() map[string]string {
	routes := make(map[string]string, len(s.routes))
	for k, v := range s.routes {
		routes[k] = v
	}
	return routes
}

// Start starts the HTTP server and handles graceful shutdown via context
func (s *Server) Start() error {
	log.Printf("Starting HTTP server on %s", s.server.Addr)

	// Canal para capturar erros do servidor
	serverErr := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("failed to start server: %w", err)
		} else {
			serverErr <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		log.Println("HTTP server stopped")
		return s.ctx.Err()

	case err := <-serverErr:
		return err
	}
}
