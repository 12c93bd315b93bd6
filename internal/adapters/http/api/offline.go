package api

import (
	"net/http"
)

// OfflineHandler serves the views over the offline datasets.
type OfflineHandler struct {
	deps Dependencies
	errs errorWriter
}

// HandleSubjects handles GET /api/v1/offline/subjects.
func (h *OfflineHandler) HandleSubjects(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Subjects(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": rows})
}

// HandleRiskScores handles GET /api/v1/offline/risk_scores.
func (h *OfflineHandler) HandleRiskScores(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.RiskScores(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risk_scores": rows})
}

// HandleRiskLevels handles GET /api/v1/offline/risk_levels?method=quantile|fixed.
func (h *OfflineHandler) HandleRiskLevels(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.ClassifyRisk(r.Context(), r.URL.Query().Get("method"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
