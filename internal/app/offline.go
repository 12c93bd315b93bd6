package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/domain/risk"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// Column names and row limits of the offline views.
const (
	IndexColumn = "independence_index"
	scoreColumn = "score"

	subjectsLimit = 200
	qcLimit       = 20
)

var subjectColumns = []string{dataset.SubjectColumn, IndexColumn, "steps_sum", "active_minutes"}

func (s *Service) requireOffline() error {
	if !s.offline {
		return ErrOfflineDisabled
	}
	return nil
}

// Subjects returns up to 200 rows of the subject columns present in the merged dataset.
func (s *Service) Subjects(_ context.Context) ([]map[string]any, error) {
	if err := s.requireOffline(); err != nil {
		return nil, err
	}
	merged, ok := s.datasets.Table(dataset.MergedScored)
	if !ok {
		return []map[string]any{}, nil
	}
	cols := merged.Available(subjectColumns...)
	if len(cols) == 0 {
		return []map[string]any{}, nil
	}
	view, err := merged.Select(cols...)
	if err != nil {
		return nil, err
	}
	return view.Head(subjectsLimit).Records(), nil
}

// RiskScores returns the raw index of every subject, renamed to score.
func (s *Service) RiskScores(_ context.Context) ([]map[string]any, error) {
	if err := s.requireOffline(); err != nil {
		return nil, err
	}
	merged, ok := s.datasets.Table(dataset.MergedScored)
	if !ok || !merged.Has(IndexColumn) {
		return []map[string]any{}, nil
	}
	view, err := merged.Select(merged.Available(dataset.SubjectColumn, IndexColumn)...)
	if err != nil {
		return nil, err
	}
	return view.Rename(IndexColumn, scoreColumn).Records(), nil
}

// RiskLevels is the body of GET /api/v1/offline/risk_levels. Meta is nil when there was
// nothing to classify.
type RiskLevels struct {
	Levels []risk.Assessment `json:"risk_levels"`
	Meta   *risk.Meta        `json:"meta,omitempty"`
}

// ClassifyRisk labels every subject of the merged dataset. An unknown method is
// ErrInvalidInput; a missing dataset, column or an empty dataset gives an empty result.
func (s *Service) ClassifyRisk(ctx context.Context, method string) (RiskLevels, error) {
	if err := s.requireOffline(); err != nil {
		return RiskLevels{}, err
	}
	m, err := risk.ParseMethod(method)
	if err != nil {
		return RiskLevels{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	empty := RiskLevels{Levels: []risk.Assessment{}}
	merged, ok := s.datasets.Table(dataset.MergedScored)
	if !ok || merged.Len() == 0 {
		return empty, nil
	}
	records, err := merged.WellnessRecords(dataset.SubjectColumn, IndexColumn)
	if err != nil {
		if errors.Is(err, dataset.ErrMissingColumn) {
			s.logger.Debug(ctx, "risk levels unavailable", logger.Error(err))
			return empty, nil
		}
		return RiskLevels{}, err
	}

	out, meta := risk.Classify(records, m)
	metrics.RecordRiskClassification(string(meta.Method))
	return RiskLevels{Levels: out, Meta: &meta}, nil
}

// OfflineDashboard is the dashboard body in offline mode.
type OfflineDashboard struct {
	Offline       bool             `json:"offline"`
	UserID        int64            `json:"user_id"`
	MergedRows    []map[string]any `json:"merged_rows"`
	QCSummaryRows []map[string]any `json:"qc_summary_rows"`
}

func (s *Service) offlineDashboard(userID int64) OfflineDashboard {
	d := OfflineDashboard{
		Offline:       true,
		UserID:        userID,
		MergedRows:    []map[string]any{},
		QCSummaryRows: []map[string]any{},
	}
	if merged, ok := s.datasets.Table(dataset.MergedScored); ok {
		col := dataset.SubjectColumn
		if !merged.Has(col) {
			if cols := merged.Columns(); len(cols) > 0 {
				col = cols[0]
			}
		}
		d.MergedRows = merged.Where(col, strconv.FormatInt(userID, 10)).Records()
	}
	if qc, ok := s.datasets.Table(dataset.QCSensorCounts); ok {
		d.QCSummaryRows = qc.Head(qcLimit).Records()
	}
	return d
}
