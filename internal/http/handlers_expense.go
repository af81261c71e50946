package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseExpenseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	expenses, err := s.store.FilterExpenses(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var body expenseBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	e, err := s.store.AddExpense(r.Context(), body.input())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/expenses/"+idKey(e.ID))
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	e, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var body expenseBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	e, err := s.store.EditExpense(r.Context(), id, body.patch())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.store.DeleteExpense(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConvertExpenses rewrites every expense into ?to=, which is required.
func (s *Server) handleConvertExpenses(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		s.writeError(w, r, log.OpConvert, &core.ValidationError{Field: "to", Err: core.ErrInvalidCurrency})
		return
	}
	n, err := s.store.ConvertAllExpenses(r.Context(), to)
	if err != nil {
		s.writeError(w, r, log.OpConvert, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}
