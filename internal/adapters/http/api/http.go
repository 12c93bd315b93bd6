// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eldercare-platform/eldercare/internal/adapters/session"
	service "github.com/eldercare-platform/eldercare/internal/app"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Health(ctx context.Context) service.Health

	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Me(ctx context.Context, token string) (session.Session, error)
	Logout(ctx context.Context, token string) error

	CreateUser(ctx context.Context, in service.NewUser) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	RegisterDevice(ctx context.Context, in service.NewDevice) (model.Device, error)
	IngestReading(ctx context.Context, uid, sensorType string, value float64) error
	AckAlert(ctx context.Context, alertID int64, by string) error

	Dashboard(ctx context.Context, userID int64) (any, error)
	BuildReport(ctx context.Context, userID int64, kind string) (service.Report, error)

	Subjects(ctx context.Context) ([]map[string]any, error)
	RiskScores(ctx context.Context) ([]map[string]any, error)
	ClassifyRisk(ctx context.Context, method string) (service.RiskLevels, error)
}

// Allowed roles per route group.
var (
	adminOnly   = []string{model.RoleAdmin}
	careCircle  = []string{model.RoleAdmin, model.RoleClinician, model.RoleCaregiver, model.RoleElderly}
	alertAckers = []string{model.RoleCaregiver, model.RoleClinician, model.RoleAdmin}
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	authHandler    *AuthHandler
	usersHandler   *UsersHandler
	devicesHandler *DevicesHandler
	alertsHandler  *AlertsHandler
	reportsHandler *ReportsHandler
	offlineHandler *OfflineHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, l logger.Logger) *Server {
	if l == nil {
		l = logger.Nop()
	}
	ew := errorWriter{logger: l}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		authHandler:    &AuthHandler{deps: deps, errs: ew},
		usersHandler:   &UsersHandler{deps: deps, errs: ew},
		devicesHandler: &DevicesHandler{deps: deps, errs: ew},
		alertsHandler:  &AlertsHandler{deps: deps, errs: ew},
		reportsHandler: &ReportsHandler{deps: deps, errs: ew},
		offlineHandler: &OfflineHandler{deps: deps, errs: ew},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	handle("GET /health", "health", s.healthHandler.HandleHealth)
	handle("GET /metrics", "metrics", s.healthHandler.HandleMetrics)

	handle("POST /api/v1/auth/login", "login", s.authHandler.HandleLogin)
	handle("GET /api/v1/auth/me", "me", s.authHandler.HandleMe)
	handle("POST /api/v1/auth/logout", "logout", s.authHandler.HandleLogout)

	handle("POST /api/v1/users", "create_user", RequireRole(adminOnly, s.usersHandler.HandleCreate))
	handle("GET /api/v1/users/{user_id}", "get_user", RequireRole(careCircle, s.usersHandler.HandleGet))
	handle("GET /api/v1/users/{user_id}/dashboard", "dashboard", s.reportsHandler.HandleDashboard)

	handle("POST /api/v1/devices", "register_device", RequireRole(adminOnly, s.devicesHandler.HandleRegister))
	handle("POST /api/v1/devices/{device_uid}/data", "device_data", s.devicesHandler.HandleData)

	handle("POST /api/v1/alerts/ack", "ack_alert", RequireRole(alertAckers, s.alertsHandler.HandleAck))

	handle("GET /api/v1/reports/{user_id}", "report", s.reportsHandler.HandleReport)

	handle("GET /api/v1/offline/subjects", "offline_subjects", s.offlineHandler.HandleSubjects)
	handle("GET /api/v1/offline/risk_scores", "offline_risk_scores", s.offlineHandler.HandleRiskScores)
	handle("GET /api/v1/offline/risk_levels", "offline_risk_levels", s.offlineHandler.HandleRiskLevels)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// writeJSON encodes before writing the header, so an unencodable body becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Detail: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// errorWriter maps service and API errors to status codes and {"detail": ...} bodies.
type errorWriter struct {
	logger logger.Logger
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		e.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err))
	}
	writeDetail(w, status, detail)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest, service.ErrInvalidRole.Error()
	case errors.Is(err, service.ErrEmailExists):
		return http.StatusBadRequest, service.ErrEmailExists.Error()
	case errors.Is(err, service.ErrDeviceExists):
		return http.StatusBadRequest, service.ErrDeviceExists.Error()
	case errors.Is(err, service.ErrOfflineDisabled):
		return http.StatusBadRequest, service.ErrOfflineDisabled.Error()
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, ErrForbidden.Error()
	case errors.Is(err, service.ErrDeviceNotFound):
		return http.StatusNotFound, service.ErrDeviceNotFound.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, http.StatusText(http.StatusNotFound)
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, service.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
