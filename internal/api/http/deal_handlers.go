package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deal-hub/deal-hub/internal/application/reconciler"
	"github.com/deal-hub/deal-hub/internal/domain/deal"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
	"github.com/deal-hub/deal-hub/internal/infrastructure/sse"
)

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 100, 200)
	deals, err := s.dealSvc.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deals": deals})
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	d, err := s.dealSvc.Get(r.Context(), dealID)
	if err != nil {
		if errors.Is(err, deal.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	events := s.store.Events(dealID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dealId": dealID,
		"events": events,
	})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	role := negotiation.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = negotiation.RoleBuyer
	}
	if role != negotiation.RoleBuyer && role != negotiation.RoleSeller {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "role must be buyer or seller")
		return
	}
	events := s.store.Events(dealID)
	state := negotiation.Project(events, role)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dealId": dealID,
		"role":   role,
		"state":  state,
		"events": len(events),
	})
}

func (s *Server) syncDeal(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	if err := s.coord.Sync(r.Context(), dealID); err != nil {
		if errors.Is(err, reconciler.ErrRateLimited) {
			respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "SYNC_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dealId": dealID,
		"events": len(s.store.Events(dealID)),
	})
}

func (s *Server) trackDeal(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	s.coord.Track(dealID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"dealId": dealID, "tracked": true})
}

func (s *Server) untrackDeal(w http.ResponseWriter, r *http.Request) {
	dealID, err := parseInt64Param(r, "dealId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
		return
	}
	s.coord.Untrack(dealID)
	respondJSON(w, http.StatusOK, map[string]interface{}{"dealId": dealID, "tracked": false})
}

// streamEndpoint serves the SSE feed of deal updates and alerts. With
// deal_id=0 (or absent) the client receives updates for every deal.
func (s *Server) streamEndpoint(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	// A dealId path param scopes the stream to one deal; the bare /stream
	// route delivers every deal's updates.
	var dealID int64
	if p := chi.URLParam(r, "dealId"); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid dealId")
			return
		}
		dealID = id
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	client := sse.NewClient(clientID, dealID)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// Send an initial comment to flush headers and keep the connection alive.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg := <-client.MessageChan:
			if msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
