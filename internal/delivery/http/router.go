package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

func NewRouter(h *Handler, mw *Middleware, l logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(mw.CORS)

	r.Get("/health", h.HealthCheck)

	// Raw body, no auth: the payment provider signs the payload.
	r.Post("/api/stripe", h.StripeWebhook)

	r.Route("/api/show", func(r chi.Router) {
		r.Get("/all", h.ListShows)
		r.Get("/{showId}", h.GetShow)
	})

	r.Route("/api/booking", func(r chi.Router) {
		r.Get("/seats/{showId}", h.OccupiedSeats)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate)
			r.Post("/create", h.CreateBooking)
			r.Get("/check-payment/{bookingId}", h.CheckPayment)
		})
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Get("/bookings", h.UserBookings)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Use(mw.RequireAdmin)
		r.Get("/is-admin", h.IsAdmin)
		r.Post("/add-show", h.AddShow)
		r.Get("/all-shows", h.AllShows)
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}
