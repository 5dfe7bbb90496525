package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/auth"
	"github.com/sugils/Email-tracker-Backend/internal/campaign"
	"github.com/sugils/Email-tracker-Backend/internal/stats"
	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

// Sender starts a campaign send in the background
type Sender interface {
	SendAsync(campaignID uuid.UUID, testMode bool)
}

// Handlers bundles the dependencies the HTTP handlers need
type Handlers struct {
	Auth      *auth.Manager
	Campaigns *campaign.Store
	Trackings *tracking.Store
	Stats     *stats.Service
	Engine    Sender
	Tracking  *tracking.Handler
	CORS      []string
}

// NewHandlers creates the handler set
func NewHandlers(authMgr *auth.Manager, campaigns *campaign.Store, trackings *tracking.Store,
	statsSvc *stats.Service, engine Sender, trackingHandler *tracking.Handler) *Handlers {
	return &Handlers{
		Auth:      authMgr,
		Campaigns: campaigns,
		Trackings: trackings,
		Stats:     statsSvc,
		Engine:    engine,
		Tracking:  trackingHandler,
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// userID extracts the authenticated user from the request context. The auth
// middleware guarantees it is present on /api routes.
func userID(r *http.Request) uuid.UUID {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// pathUUID parses a chi URL parameter as a UUID
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
