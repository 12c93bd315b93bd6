package api

import (
	"net/http"

	service "github.com/eldercare-platform/eldercare/internal/app"
)

// UsersHandler handles user registration and lookup.
type UsersHandler struct {
	deps Dependencies
	errs errorWriter
}

type createUserRequest struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required"`
	Role     string `validate:"required"`
	Password string `validate:"required"`
}

// HandleCreate handles POST /api/v1/users.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	p, err := params(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	req := createUserRequest{
		Email:    p.Get("email"),
		Name:     p.Get("name"),
		Role:     p.Get("role"),
		Password: p.Get("password"),
	}
	if err := check(op, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	u, err := h.deps.CreateUser(r.Context(), service.NewUser(req))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGet handles GET /api/v1/users/{user_id}.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt("api.get_user", "user_id", r.PathValue("user_id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	u, err := h.deps.GetUser(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DevicesHandler handles device registration and reading ingestion.
type DevicesHandler struct {
	deps Dependencies
	errs errorWriter
}

type registerDeviceRequest struct {
	DeviceUID string `validate:"required"`
	Type      string `validate:"required"`
}

// HandleRegister handles POST /api/v1/devices.
func (h *DevicesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_device"
	p, err := params(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	req := registerDeviceRequest{DeviceUID: p.Get("device_uid"), Type: p.Get("type")}
	if err := check(op, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	owner, err := optionalInt(op, "owner_user_id", p.Get("owner_user_id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	d, err := h.deps.RegisterDevice(r.Context(), service.NewDevice{DeviceUID: req.DeviceUID, Type: req.Type, OwnerUserID: owner})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type readingRequest struct {
	SensorType string `validate:"required"`
	Value      string `validate:"required"`
}

// HandleData handles POST /api/v1/devices/{device_uid}/data.
func (h *DevicesHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	const op = "api.device_data"
	p, err := params(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	req := readingRequest{SensorType: p.Get("sensor_type"), Value: p.Get("value")}
	if err := check(op, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	value, err := parseFloat(op, "value", req.Value)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.deps.IngestReading(r.Context(), r.PathValue("device_uid"), req.SensorType, value); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// AlertsHandler handles alert acknowledgment.
type AlertsHandler struct {
	deps Dependencies
	errs errorWriter
}

type ackRequest struct {
	AlertID string `validate:"required"`
	By      string `validate:"required"`
}

// HandleAck handles POST /api/v1/alerts/ack.
func (h *AlertsHandler) HandleAck(w http.ResponseWriter, r *http.Request) {
	const op = "api.ack_alert"
	p, err := params(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	req := ackRequest{AlertID: p.Get("alert_id"), By: p.Get("by")}
	if err := check(op, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	id, err := parseInt(op, "alert_id", req.AlertID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.deps.AckAlert(r.Context(), id, req.By); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
