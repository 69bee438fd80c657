package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/sitewatch-service/internal/delivery/http/handler"
	"github.com/user/sitewatch-service/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

// requestTimeout covers the slowest route, the Telegram test send.
const requestTimeout = 90 * time.Second

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/", h.HandleRoot)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)

		r.Get("/websites", h.HandleListSites)
		r.Post("/websites", h.HandleCreateSite)
		r.Post("/websites/{id}/toggle", h.HandleToggleSite)
		r.Delete("/websites/{id}", h.HandleDeleteSite)

		r.Get("/logs/{id}", h.HandleSiteLogs)

		r.Post("/monitoring/start", h.HandleStartMonitoring)
		r.Post("/monitoring/stop", h.HandleStopMonitoring)
		r.Get("/monitoring/status", h.HandleMonitoringStatus)

		r.Post("/telegram/test", h.HandleTelegramTest)
	})

	return r
}
