package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type watchCreateRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func (s *Server) createWatch(w http.ResponseWriter, r *http.Request) {
	var req watchCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.Expression == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "expression is required")
		return
	}
	rule, err := s.watchSvc.AddRule(req.Name, req.Expression)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) listWatches(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"rules": s.watchSvc.ListRules()})
}

func (s *Server) deleteWatch(w http.ResponseWriter, r *http.Request) {
	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid ruleId")
		return
	}
	if !s.watchSvc.RemoveRule(ruleID) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "rule not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}
