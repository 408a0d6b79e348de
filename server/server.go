// Package server exposes the store, the assistant and the reports over HTTP
// and a websocket chat endpoint.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/teranos/smrt/assistant"
	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/store"
)

// maxBodySize bounds a JSON request body
const maxBodySize = 1 << 20

// RefreshRecorder receives refresh outcomes, e.g. for metrics
type RefreshRecorder interface {
	Refreshed(loaded bool, err error)
}

// Options configure a Server. Store and Assistant are required.
type Options struct {
	Store          *store.Store
	Assistant      *assistant.Assistant
	Metrics        http.Handler // served at /metrics when set
	Refreshes      RefreshRecorder
	AllowedOrigins []string
	Now            func() time.Time
	Logger         *zap.SugaredLogger
}

// Server is the smrt HTTP API
type Server struct {
	store          *store.Store
	assistant      *assistant.Assistant
	metrics        http.Handler
	refreshes      RefreshRecorder
	allowedOrigins []string
	now            func() time.Time
	logger         *zap.SugaredLogger
	router         chi.Router

	mu         sync.Mutex
	clients    map[*chatClient]struct{}
	httpServer *http.Server
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// New builds the server and its routes
func New(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("server")
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		store:          opts.Store,
		assistant:      opts.Assistant,
		metrics:        opts.Metrics,
		refreshes:      opts.Refreshes,
		allowedOrigins: opts.AllowedOrigins,
		now:            now,
		logger:         log,
		clients:        make(map[*chatClient]struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestIDMiddleware)
	r.Use(s.accessLog)
	r.Use(s.corsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ws/chat", s.handleChatSocket)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/data-status", s.handleDataStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)

		r.Get("/customers", s.handleCustomers)
		r.Get("/customers/{id}/orders", s.handleCustomerOrders)
		r.Get("/orders", s.handleOrders)
		r.Get("/orders/{id}/details", s.handleOrderDetails)
		r.Get("/products", s.handleProducts)

		r.Get("/reports/dashboard", s.handleDashboard)
		r.Get("/reports/text/{type}", s.handleTextReport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
