package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
)

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	currency, err := queryCurrency(r.URL.Query(), "currency", s.store.DefaultCurrency())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	expenses, err := s.store.ListExpenses(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.reports.TotalsByCategory(r.Context(), expenses, currency)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type taxResponse struct {
	Rate     decimal.Decimal `json:"rate"`
	Currency string          `json:"currency,omitempty"`
	Estimate decimal.Decimal `json:"estimate"`
}

// handleTaxReport estimates tax over all expenses. Without ?currency= the
// amounts are summed as recorded; with it each is converted first.
func (s *Server) handleTaxReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate := s.taxRate
	if raw := strings.TrimSpace(q.Get("rate")); raw != "" {
		v, err := core.ParseNonNegativeAmount(raw)
		if err != nil {
			s.writeError(w, r, log.OpRead, &core.ValidationError{Field: "rate", Err: err})
			return
		}
		rate = v
	}

	expenses, err := s.store.ListExpenses(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}

	resp := taxResponse{Rate: rate}
	if q.Get("currency") == "" {
		resp.Estimate = report.TaxEstimate(expenses, rate)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	currency, err := queryCurrency(q, "currency", s.store.DefaultCurrency())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	resp.Currency = currency
	resp.Estimate, err = s.reports.TaxEstimateIn(r.Context(), expenses, rate, currency)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	budget, err := s.store.GetBudget(r.Context(), pathCategory(r))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	expenses, err := s.store.ListExpenses(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	status, err := s.reports.BudgetStatus(r.Context(), budget, expenses)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleExport streams a collection as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	a, err := s.store.Load(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	header, rows, err := report.Table(collection, a)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ToLower(collection)+`.csv"`)
	if err := report.WriteCSV(w, header, rows); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export interrupted",
			log.FieldOperation, log.OpExport, log.FieldError, err.Error())
	}
}
