package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/slotwise/booking-engine/internal/booking"
)

type RouterConfig struct {
	Engine   *booking.Engine
	Sessions SessionStore
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/providers/{providerID}", func(r chi.Router) {
		r.Route("/services/{serviceID}", func(r chi.Router) {
			r.Get("/slots", getSlotsHandler(cfg.Engine))
			r.Get("/slots/week", getWeeklySlotsHandler(cfg.Engine))
			r.Get("/slots/check", checkSlotHandler(cfg.Engine))
		})

		r.Route("/sessions/{phone}", func(r chi.Router) {
			r.Get("/", getSessionHandler(cfg.Sessions))
			r.Put("/", putSessionHandler(cfg.Sessions))
			r.Delete("/", deleteSessionHandler(cfg.Sessions))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Engine))
			r.Get("/", listAppointmentsHandler(cfg.Engine))
			r.Get("/{id}", getAppointmentHandler(cfg.Engine))
			r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Engine))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Engine))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Engine))
			r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Engine))
		})
	})

	return r
}
