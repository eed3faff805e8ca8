// Package server wires the HTTP API: router, middleware, and graceful
// lifecycle around the job manager.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apierrors "github.com/ColorsOutofSpace/net-check/internal/errors"
	"github.com/ColorsOutofSpace/net-check/internal/server/handlers"
	"github.com/ColorsOutofSpace/net-check/internal/server/middleware"
	"github.com/ColorsOutofSpace/net-check/pkg/analysis"
	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

// Deps carries everything the API needs to serve requests.
type Deps struct {
	Manager     *jobmanager.Manager
	Catalog     *catalog.Catalog
	Layers      []catalog.Layer
	AnalysisCfg analysis.Config
	Logger      *zap.Logger
	Registry    *prometheus.Registry
	Version     string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server hosts the diagnostics HTTP API.
type Server struct {
	host    string
	port    int
	handler http.Handler
	httpSrv *http.Server
	logger  *zap.Logger
}

// New builds the router and returns a server bound to host:port.
func New(host string, port int, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	jobs := handlers.NewJobsHandler(deps.Manager, deps.Catalog, deps.Layers, deps.AnalysisCfg, logger)

	health := handlers.NewHealthManager(deps.Version)
	health.RegisterChecker("job_manager", managerChecker{deps.Manager})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger(logger))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.CodeNotFound,
			fmt.Sprintf("no route for %s", req.URL.Path), middleware.GetRequestID(req.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.CodeMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", req.Method), middleware.GetRequestID(req.Context()))
	})

	r.Get("/health", health.HealthHandler)
	r.Get("/version", versionHandler(deps.Version))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/checks", jobs.Checks)
		r.Get("/summary", jobs.Summary)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobs.Create)
			r.Get("/", jobs.List)
			r.Get("/{jobID}", jobs.Get)
			r.Get("/{jobID}/events", jobs.Events)
		})
	})

	readTimeout := deps.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	// SSE streams stay open for the life of a job, so the write timeout is
	// only applied when explicitly configured.
	writeTimeout := deps.WriteTimeout

	srv := &Server{
		host:    host,
		port:    port,
		handler: r,
		logger:  logger,
	}
	srv.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
	return srv
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpSrv.Shutdown(ctx)
}

func versionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":%q}`+"\n", version)
	}
}

// managerChecker reports the job manager as healthy whenever it is
// reachable. It exists so /health exercises the same dependency the API
// serves from.
type managerChecker struct {
	m *jobmanager.Manager
}

func (c managerChecker) CheckHealth(ctx context.Context) error {
	if c.m == nil {
		return fmt.Errorf("job manager not configured")
	}
	_ = c.m.Snapshots()
	return nil
}
