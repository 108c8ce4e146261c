package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/rewards-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware платформы вознаграждений.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.GetTransactions)

			r.Post("/redemptions", h.CreateRedemption)
			r.Get("/redemptions", h.GetRedemptions)
			r.Post("/redemptions/{id}/cancel", h.CancelRedemption)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/points", h.AwardPoints)

		r.Post("/redemptions/{id}/approve", h.ApproveRedemption)
		r.Post("/redemptions/{id}/reject", h.RejectRedemption)
		r.Post("/redemptions/{id}/deliver", h.DeliverRedemption)

		r.Get("/inventory/{productID}", h.GetInventory)
		r.Post("/inventory/{productID}/stock", h.AddStock)

		r.Post("/events/{eventID}/participants", h.RegisterParticipant)
		r.Post("/participants/{id}/checkin", h.CheckInParticipant)
		r.Post("/participants/{id}/award", h.AwardEventPoints)
		r.Post("/participants/{id}/revoke", h.RevokeEventPoints)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
