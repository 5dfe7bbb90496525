package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router: open tracking endpoints at the root,
// auth endpoints, and the authenticated /api surface.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := h.CORS
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Tracking endpoints and health live at the root, unauthenticated:
	// mail clients and proxies hit these directly.
	r.Get("/track/open/{pixelID}", h.Tracking.HandleOpen)
	r.Get("/track/beacon/{pixelID}", h.Tracking.HandleBeacon)
	r.Get("/track/click/{trackingID}/{linkID}", h.Tracking.HandleClick)
	r.Get("/health", h.Tracking.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		// Auth endpoints (no token required)
		r.Post("/auth/register", h.Auth.HandleRegister)
		r.Post("/auth/login", h.Auth.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			r.Get("/auth/me", h.Auth.HandleMe)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", h.ListGroups)
				r.Post("/", h.CreateGroup)
				r.Get("/{groupID}", h.GetGroup)
				r.Put("/{groupID}", h.UpdateGroup)
				r.Delete("/{groupID}", h.DeleteGroup)
			})

			r.Route("/recipients", func(r chi.Router) {
				r.Get("/", h.ListRecipients)
				r.Post("/", h.CreateRecipient)
				r.Post("/bulk", h.BulkCreateRecipients)
				r.Post("/bulk-delete", h.BulkDeleteRecipients)
				r.Get("/{recipientID}", h.GetRecipient)
				r.Put("/{recipientID}", h.UpdateRecipient)
				r.Delete("/{recipientID}", h.DeleteRecipient)
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", h.ListTemplates)
				r.Post("/", h.CreateTemplate)
				r.Post("/preview", h.PreviewTemplate)
				r.Get("/{templateID}", h.GetTemplate)
				r.Put("/{templateID}", h.UpdateTemplate)
				r.Delete("/{templateID}", h.DeleteTemplate)
			})

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", h.ListCampaigns)
				r.Post("/", h.CreateCampaign)
				r.Get("/{campaignID}", h.GetCampaign)
				r.Put("/{campaignID}", h.UpdateCampaign)
				r.Delete("/{campaignID}", h.DeleteCampaign)
				r.Post("/{campaignID}/send", h.SendCampaign)
				r.Post("/{campaignID}/groups", h.AttachCampaignGroups)
				r.Delete("/{campaignID}/groups/{groupID}", h.DetachCampaignGroup)
				r.Post("/{campaignID}/recipients/{recipientID}/replied", h.MarkRecipientReplied)
			})

			r.Post("/tracking/mark-replied", h.MarkReplied)
			r.Get("/dashboard/stats", h.GetDashboardStats)
		})
	})

	return r
}
