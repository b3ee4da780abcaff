package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the chi router with the global middleware stack and
// every API route.
func NewRouter(events *EventHandler, requests *RequestHandler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP) // trust X-Forwarded-For
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", events.CreateEvent)
			r.Get("/", events.ListUserEvents)
			r.Get("/{eventId}", events.GetUserEvent)
			r.Patch("/{eventId}", events.UpdateUserEvent)
			r.Get("/{eventId}/requests", requests.ListEventRequests)
			r.Patch("/{eventId}/requests", requests.UpdateRequestStatuses)
		})
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requests.ListUserRequests)
			r.Post("/", requests.CreateRequest)
			r.Patch("/{requestId}/cancel", requests.CancelRequest)
		})
	})

	r.Route("/admin/events", func(r chi.Router) {
		r.Get("/", events.SearchEvents)
		r.Patch("/{eventId}", events.UpdateEventByAdmin)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)
	})

	return r
}
