package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appDeal "github.com/deal-hub/deal-hub/internal/application/deal"
	"github.com/deal-hub/deal-hub/internal/application/gateway"
	"github.com/deal-hub/deal-hub/internal/application/reconciler"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/application/watch"
	"github.com/deal-hub/deal-hub/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	dealSvc    *appDeal.Service
	gatewaySvc *gateway.Service
	coord      *reconciler.Coordinator
	watchSvc   *watch.Service
	store      *timeline.Store
	sseHub     *sse.Hub
}

func NewServer(
	dealSvc *appDeal.Service,
	gatewaySvc *gateway.Service,
	coord *reconciler.Coordinator,
	watchSvc *watch.Service,
	store *timeline.Store,
	sseHub *sse.Hub,
) *Server {
	return &Server{
		dealSvc:    dealSvc,
		gatewaySvc: gatewaySvc,
		coord:      coord,
		watchSvc:   watchSvc,
		store:      store,
		sseHub:     sseHub,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", s.listDeals)
			r.Get("/stream", s.streamEndpoint)
			r.Get("/{dealId}", s.getDeal)
			r.Get("/{dealId}/stream", s.streamEndpoint)
			r.Get("/{dealId}/timeline", s.getTimeline)
			r.Get("/{dealId}/state", s.getState)
			r.Post("/{dealId}/sync", s.syncDeal)
			r.Post("/{dealId}/track", s.trackDeal)
			r.Delete("/{dealId}/track", s.untrackDeal)
			r.Post("/{dealId}/actions", s.requestAction)
		})

		r.Route("/watches", func(r chi.Router) {
			r.Post("/", s.createWatch)
			r.Get("/", s.listWatches)
			r.Delete("/{ruleId}", s.deleteWatch)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"sse_clients": s.sseHub.ClientCount(),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseInt64Param(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
