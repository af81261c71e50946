package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	f, err := parseIncomeFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	income, err := s.store.FilterIncome(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpFilter, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(income))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var body incomeBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := s.store.AddIncome(r.Context(), body.input())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/income/"+idKey(in.ID))
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	in, err := s.store.GetIncome(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleEditIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var body incomeBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	in, err := s.store.EditIncome(r.Context(), id, body.patch())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.store.DeleteIncome(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
