package api

import (
	"bytes"
	"fmt"
	"net/http"

	service "github.com/eldercare-platform/eldercare/internal/app"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves dashboards and reports.
type ReportsHandler struct {
	deps Dependencies
	errs errorWriter
}

type csvReport struct {
	Type    string `json:"type"`
	UserID  *int64 `json:"user_id,omitempty"`
	Data    string `json:"data"`
	Rows    *int   `json:"rows,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleDashboard handles GET /api/v1/users/{user_id}/dashboard.
func (h *ReportsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt("api.dashboard", "user_id", r.PathValue("user_id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	d, err := h.deps.Dashboard(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleReport handles GET /api/v1/reports/{user_id}?type=csv|xlsx.
func (h *ReportsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.report"
	id, err := parseInt(op, "user_id", r.PathValue("user_id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	rep, err := h.deps.BuildReport(r.Context(), id, r.URL.Query().Get("type"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	if rep.Table == nil {
		writeJSON(w, http.StatusOK, csvReport{Type: rep.Type, Message: "No data available"})
		return
	}

	var buf bytes.Buffer
	if rep.Type == service.ReportXLSX {
		if err := rep.Table.WriteXLSX(&buf); err != nil {
			h.errs.write(w, r, fmt.Errorf("%s: %w", op, err))
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%d.xlsx"`, id))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	if err := rep.Table.WriteCSV(&buf); err != nil {
		h.errs.write(w, r, fmt.Errorf("%s: %w", op, err))
		return
	}
	rows := rep.Table.Len()
	writeJSON(w, http.StatusOK, csvReport{Type: rep.Type, UserID: &rep.UserID, Data: buf.String(), Rows: &rows})
}
