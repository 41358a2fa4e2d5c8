// Package server wires the chi router, middleware, and route handlers that
// orchestrate every other component (A-J) for one client request.
//
// Grounded on the teacher's internal/server/server.go: same router
// construction, same middleware.Logger/middleware.Recoverer wrapping, same
// ServeHTTP delegation pattern. The provider registry the teacher keyed by
// model name is gone; this proxy has exactly one upstream (Gemini) reached
// through a single Upstream Client, so there is nothing left to register.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/howard-nolan/geminiproxy/internal/cache"
	"github.com/howard-nolan/geminiproxy/internal/config"
	"github.com/howard-nolan/geminiproxy/internal/eventlog"
	"github.com/howard-nolan/geminiproxy/internal/health"
	"github.com/howard-nolan/geminiproxy/internal/metrics"
	"github.com/howard-nolan/geminiproxy/internal/oauth"
	"github.com/howard-nolan/geminiproxy/internal/signature"
	"github.com/howard-nolan/geminiproxy/internal/upstream"
)

// Server holds the HTTP router and every dependency the route handlers
// need, the same "attach services as fields" shape as the teacher's Server.
type Server struct {
	router chi.Router

	cfg       *config.AppConfig
	log       *zap.Logger
	metrics   *metrics.Registry
	gatherer  prometheus.Gatherer
	health    *health.Tracker
	sigStore  *signature.Store
	cacheMgr  *cache.Manager
	eventlog  *eventlog.Sink
	upstream  *upstream.Client
	tokenInfo *oauth.Manager
}

// New builds a Server, wires up routes and middleware, and returns it ready
// to use as an http.Handler — the same constructor shape as the teacher's
// server.New, generalized from a provider registry to this proxy's fixed
// set of collaborators.
func New(
	cfg *config.AppConfig,
	log *zap.Logger,
	reg *metrics.Registry,
	gatherer prometheus.Gatherer,
	ht *health.Tracker,
	sigStore *signature.Store,
	cacheMgr *cache.Manager,
	evSink *eventlog.Sink,
	upstreamClient *upstream.Client,
	tokenInfo *oauth.Manager,
) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		metrics:   reg,
		gatherer:  gatherer,
		health:    ht,
		sigStore:  sigStore,
		cacheMgr:  cacheMgr,
		eventlog:  evSink,
		upstream:  upstreamClient,
		tokenInfo: tokenInfo,
	}
	s.routes()
	return s
}

// routes builds the chi router with all middleware and route definitions,
// mirroring the teacher's single routes() method gathering the whole
// routing table in one place.
func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/v1/messages", s.handleMessages)
	r.Post("/api/event_logging/batch", s.handleEventLoggingBatch)

	s.router = r
}

// ServeHTTP makes Server satisfy the http.Handler interface, delegating to
// chi's router exactly as the teacher's Server does.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler(s.gatherer).ServeHTTP(w, r)
}
