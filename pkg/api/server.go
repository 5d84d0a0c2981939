package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/httputil"
	"github.com/prowlsec/prowl/pkg/observability"
	"github.com/prowlsec/prowl/pkg/orchestrator"
	"github.com/prowlsec/prowl/pkg/target"
)

// Server represents the HTTP API server
type Server struct {
	orch    *orchestrator.Orchestrator
	targets *target.Workspace
	metrics *observability.Metrics
	log     *logrus.Logger
	router  *mux.Router
}

// NewServer creates a new API server. targets and metrics may be nil: without
// a workspace runs keep their artifacts wherever the caller says, and without
// metrics the /metrics endpoint is not registered.
func NewServer(orch *orchestrator.Orchestrator, targets *target.Workspace, metrics *observability.Metrics, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		orch:    orch,
		targets: targets,
		metrics: metrics,
		log:     log,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/plugins", s.listPlugins).Methods("GET")
	v1.HandleFunc("/plugins/{name}", s.getPlugin).Methods("GET")
	v1.HandleFunc("/plugins/{name}/check", s.checkPlugin).Methods("GET")
	v1.HandleFunc("/plugins/{name}/run", s.runPlugin).Methods("POST")
	v1.HandleFunc("/resources", s.getResources).Methods("GET")
}

// Handler returns the fully assembled handler with the standard middleware
// stack applied.
func (s *Server) Handler() http.Handler {
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.log),
		httputil.RecoveryMiddleware(s.log),
	)(s.router)
}

// ListenAndServe starts the server on the given address and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.log.WithField("addr", addr).Info("API server listening")
	return http.ListenAndServe(addr, s.Handler())
}
