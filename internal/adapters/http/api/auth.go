package api

import (
	"net/http"
	"strings"
)

// AuthHandler handles login and token inspection.
type AuthHandler struct {
	deps Dependencies
	errs errorWriter
}

type loginRequest struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// HandleLogin handles POST /api/v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	p, err := params(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	req := loginRequest{Email: p.Get("email"), Password: p.Get("password")}
	if err := check(op, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	res, err := h.deps.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMe handles GET /api/v1/auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Me(r.Context(), bearer(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleLogout handles POST /api/v1/auth/logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Logout(r.Context(), bearer(r)); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func bearer(r *http.Request) string {
	const prefix = "bearer "
	v := r.Header.Get("Authorization")
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}
