// Package http serves the record store, reports and rate lookups as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

const requestTimeout = 30 * time.Second

// RateLookup answers exchange-rate queries.
type RateLookup interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	SymbolFor(code string) string
}

// Deps are the components the API is built on.
type Deps struct {
	Store              *services.RecordStore
	Reports            *report.Builder
	Rates              RateLookup
	TaxRate            decimal.Decimal
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	store   *services.RecordStore
	reports *report.Builder
	rates   RateLookup
	taxRate decimal.Decimal
	logger  *log.Logger

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		store:       deps.Store,
		reports:     deps.Reports,
		rates:       deps.Rates,
		taxRate:     deps.TaxRate,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute, Logger: logger}),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware())
	r.Use(log.AccessLog())
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(writeRateLimited))
		r.Use(middleware.Timeout(requestTimeout))

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Post("/convert", s.handleConvertExpenses)
			r.Get("/{id}", s.handleGetExpense)
			r.Patch("/{id}", s.handleEditExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/income", func(r chi.Router) {
			r.Get("/", s.handleListIncome)
			r.Post("/", s.handleCreateIncome)
			r.Get("/{id}", s.handleGetIncome)
			r.Patch("/{id}", s.handleEditIncome)
			r.Delete("/{id}", s.handleDeleteIncome)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Get("/{category}", s.handleGetBudget)
			r.Put("/{category}", s.handleSetBudget)
			r.Patch("/{category}", s.handleEditBudget)
			r.Delete("/{category}", s.handleDeleteBudget)
		})

		r.Get("/reports/categories", s.handleCategoryReport)
		r.Get("/reports/tax", s.handleTaxReport)
		r.Get("/reports/budgets/{category}", s.handleBudgetReport)
		r.Get("/export/{collection}", s.handleExport)
		r.Get("/rates", s.handleRate)
	})

	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
