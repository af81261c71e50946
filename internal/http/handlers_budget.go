package http

import (
	"net/http"
	"net/url"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(budgets))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var body budgetBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	b, err := s.store.AddBudget(r.Context(), services.BudgetInput{
		Category: deref(body.Category),
		Amount:   deref(body.Amount),
		Currency: deref(body.Currency),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/budgets/"+url.PathEscape(b.Category))
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBudget(r.Context(), pathCategory(r))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleSetBudget upserts the allocation for the path category. Only
// "amount" is read from the body.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var body budgetBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if body.Amount == nil {
		s.writeError(w, r, log.OpUpdate, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount})
		return
	}
	b, err := s.store.SetBudgetAmount(r.Context(), pathCategory(r), *body.Amount)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleEditBudget(w http.ResponseWriter, r *http.Request) {
	var body budgetBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	b, err := s.store.EditBudget(r.Context(), pathCategory(r), services.BudgetPatch{
		Category: body.Category,
		Amount:   body.Amount,
		Currency: body.Currency,
	})
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBudget(r.Context(), pathCategory(r)); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
