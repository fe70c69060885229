// Package http exposes the ledger over a JSON HTTP API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/trace"
)

// ExpenseAPI is the ledger surface the handlers call.
type ExpenseAPI interface {
	CreateExpense(ctx context.Context, d core.Draft) (core.Expense, bool, error)
	ListExpenses(ctx context.Context, f core.Filters, sort core.SortKey) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger  ExpenseAPI
	logger  *applog.Logger
	events  *applog.StructuredLogger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
}

// Options configures the transport around the ledger.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

func NewServer(addr string, ledger ExpenseAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:  ledger,
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(logger, clientIP),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	s.RegisterOnShutdown(s.limiter.Stop)

	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(requestID))
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handleRoot)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, s.handleRateLimited))

		r.Get("/categories", handleCategories)
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", s.handleCreateExpense)
			r.Get("/", s.handleListExpenses)
			r.Get("/{id}", s.handleGetExpense)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "NotFound", "route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed").Write(w)
	})

	return r
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// Metrics exposes the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
