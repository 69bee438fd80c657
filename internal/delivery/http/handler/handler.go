package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/user/sitewatch-service/internal/delivery/http/request"
	"github.com/user/sitewatch-service/internal/delivery/http/response"
	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/internal/usecase"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// MonitoringControl switches checking on and off.
type MonitoringControl interface {
	StartMonitoring()
	StopMonitoring()
	MonitoringEnabled() bool
}

// Pinger is a dependency probed by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	siteManager usecase.SiteManager
	monitoring  MonitoringControl
	dispatcher  usecase.AlertDispatcher
	deps        map[string]Pinger
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewHandler(
	siteManager usecase.SiteManager,
	monitoring MonitoringControl,
	dispatcher usecase.AlertDispatcher,
	deps map[string]Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		siteManager: siteManager,
		monitoring:  monitoring,
		dispatcher:  dispatcher,
		deps:        deps,
		validate:    validator.New(),
		logger:      logger.With(zap.String("component", "http_handler")),
	}
}

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, response.StatusResponse{Status: "Sitewatch backend running"})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	healthStatus := map[string]string{"status": "ok"}
	healthy := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		healthStatus["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	h.writeJSON(w, http.StatusOK, healthStatus)
}

func (h *Handler) HandleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.siteManager.List(r.Context())
	if err != nil {
		h.internalError(w, "Failed to list sites", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewSiteListResponse(sites))
}

func (h *Handler) HandleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	in := usecase.RegisterSiteInput{Name: req.Name, URL: req.URL, Keyword: req.Keyword}
	if req.Interval != nil {
		in.Interval = *req.Interval
	}
	site, err := h.siteManager.Register(r.Context(), in)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidSite) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.internalError(w, "Failed to create site", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, response.NewSiteResponse(site))
}

func (h *Handler) HandleToggleSite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.siteID(w, r)
	if !ok {
		return
	}
	enabled, err := h.siteManager.Toggle(r.Context(), id)
	if err != nil {
		h.siteError(w, "Failed to toggle site", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.EnabledResponse{Enabled: enabled})
}

func (h *Handler) HandleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.siteID(w, r)
	if !ok {
		return
	}
	if err := h.siteManager.Delete(r.Context(), id); err != nil {
		h.siteError(w, "Failed to delete site", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.MessageResponse{Message: "deleted"})
}

func (h *Handler) HandleSiteLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.siteID(w, r)
	if !ok {
		return
	}
	logs, err := h.siteManager.Logs(r.Context(), id)
	if err != nil {
		h.siteError(w, "Failed to load logs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewSiteLogListResponse(logs))
}

func (h *Handler) HandleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	h.monitoring.StartMonitoring()
	h.writeJSON(w, http.StatusOK, response.EnabledResponse{Enabled: true})
}

func (h *Handler) HandleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	h.monitoring.StopMonitoring()
	h.writeJSON(w, http.StatusOK, response.EnabledResponse{Enabled: false})
}

func (h *Handler) HandleMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, response.EnabledResponse{Enabled: h.monitoring.MonitoringEnabled()})
}

func (h *Handler) HandleTelegramTest(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.SendTest(r.Context()); err != nil {
		h.logger.Warn("telegram test failed", zap.Error(err))
		h.writeJSONError(w, "Telegram test failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusOK, response.StatusResponse{Status: "sent"})
}

func (h *Handler) siteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeJSONError(w, "Invalid site id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) siteError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		h.writeJSONError(w, "Website not found", http.StatusNotFound)
		return
	}
	h.internalError(w, msg, err)
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "http_url":
			msgs = append(msgs, field+" must be an absolute http(s) URL")
		case "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
