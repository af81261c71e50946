package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rateResponse struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Rate   decimal.Decimal `json:"rate"`
	Symbol string          `json:"symbol"`
}

// handleRate answers GET /api/rates?from=&to=. Both codes default to the
// store's default currency.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryCurrency(q, "from", s.store.DefaultCurrency())
	if err != nil {
		s.writeError(w, r, log.OpConvert, err)
		return
	}
	to, err := queryCurrency(q, "to", s.store.DefaultCurrency())
	if err != nil {
		s.writeError(w, r, log.OpConvert, err)
		return
	}

	rate, err := s.rates.Rate(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, log.OpConvert, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{From: from, To: to, Rate: rate, Symbol: s.rates.SymbolFor(to)})
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

type countResponse struct {
	Count int `json:"count"`
}
