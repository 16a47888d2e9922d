package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling-assistant/internal/validate"
)

type RouterConfig struct {
	Chat      Chatter
	Directory Directory
	Scheduler Scheduler
	Health    *HealthHandler
	Metrics   http.Handler // defaults to promhttp.Handler()
	Logger    *logrus.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler(nil, nil, "", "")
	}
	metricsHandler := cfg.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	v := validate.New()

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", chatHandler(cfg.Chat, v, log))

		r.Get("/specialties", specialtiesHandler(cfg.Directory, log))
		r.Get("/doctors", doctorsHandler(cfg.Directory, log))
		r.Get("/availability", availabilityHandler(cfg.Scheduler, log))

		r.Post("/appointments", bookHandler(cfg.Scheduler, log))
		r.Post("/appointments/cancel", cancelHandler(cfg.Scheduler, log))
		r.Post("/appointments/reschedule", rescheduleHandler(cfg.Scheduler, log))
	})

	return r
}
