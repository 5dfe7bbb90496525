package tracking

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler serves the public tracking endpoints. Every route degrades
// silently: an email client or link-follower never sees a tracking error.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/track/open/{pixelID}", h.HandleOpen)
	r.Get("/track/beacon/{pixelID}", h.HandleBeacon)
	r.Get("/track/click/{trackingID}/{linkID}", h.HandleClick)
	r.Get("/health", h.HandleHealth)
	return r
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	pixelID := chi.URLParam(r, "pixelID")

	matched, err := h.store.ApplyOpen(r.Context(), pixelID)
	if err != nil {
		log.Printf("[Tracking] open signal error pixel=%s: %v", pixelID, err)
	} else if matched {
		log.Printf("[Tracking] OPEN pixel=%s pos=%s ip=%s", pixelID, r.URL.Query().Get("pos"), realIP(r))
	}

	h.servePixel(w)
}

func (h *Handler) HandleBeacon(w http.ResponseWriter, r *http.Request) {
	pixelID := chi.URLParam(r, "pixelID")
	delayed := r.URL.Query().Get("d") == "1"

	matched, err := h.store.ApplyOpen(r.Context(), pixelID)
	if err != nil {
		log.Printf("[Tracking] beacon signal error pixel=%s: %v", pixelID, err)
	} else if matched {
		log.Printf("[Tracking] BEACON pixel=%s delayed=%v ip=%s", pixelID, delayed, realIP(r))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	trackingID, err := uuid.Parse(chi.URLParam(r, "trackingID"))
	if err != nil {
		http.Redirect(w, r, FallbackRedirectURL, http.StatusFound)
		return
	}
	linkID, err := uuid.Parse(chi.URLParam(r, "linkID"))
	if err != nil {
		http.Redirect(w, r, FallbackRedirectURL, http.StatusFound)
		return
	}

	link, err := h.store.GetLink(r.Context(), trackingID, linkID)
	if err != nil {
		log.Printf("[Tracking] click lookup error link=%s: %v", linkID, err)
		http.Redirect(w, r, FallbackRedirectURL, http.StatusFound)
		return
	}
	if link == nil {
		log.Printf("[Tracking] click on unknown link=%s tracking=%s", linkID, trackingID)
		http.Redirect(w, r, FallbackRedirectURL, http.StatusFound)
		return
	}

	if err := h.store.ApplyClick(r.Context(), trackingID, linkID); err != nil {
		// The visitor still gets their destination.
		log.Printf("[Tracking] click signal error link=%s: %v", linkID, err)
	} else {
		log.Printf("[Tracking] CLICK tracking=%s url=%s ip=%s", trackingID, link.OriginalURL, realIP(r))
	}

	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(pixelGIF)
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
