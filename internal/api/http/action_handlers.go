package httpapi

import (
	"errors"
	"net/http"

	"github.com/deal-hub/deal-hub/internal/application/gateway"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

type actionRequest struct {
	Action    string `json:"action"`
	Role      string `json:"role"`
	Amount    *int64 `json:"amount,omitempty"`
	SubjectID *int64 `json:"subjectId,omitempty"`
}

func (s *Server) requestAction(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "action is required")
		return
	}

	payload := gateway.Payload{
		Role:      negotiation.Role(req.Role),
		Amount:    req.Amount,
		SubjectID: req.SubjectID,
	}
	result, err := s.gatewaySvc.RequestAction(r.Context(), dealID, gateway.Action(req.Action), payload)
	if err != nil {
		var illegal *negotiation.IllegalActionError
		if errors.As(err, &illegal) {
			respondError(w, http.StatusConflict, "ILLEGAL_ACTION", illegal.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, result)
}
