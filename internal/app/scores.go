package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/internal/domain/scoring"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// ImportResult counts what ImportRiskScores did with each row.
type ImportResult struct {
	Imported int `json:"imported"`
	// Skipped rows have a subject that is not a registered user or no usable index.
	Skipped int `json:"skipped"`
}

// ImportRiskScores scores every row of a merged dataset whose subject_id is the
// id of a registered user and stores the result as that user's risk score.
func (s *Service) ImportRiskScores(ctx context.Context, t *dataset.Table) (ImportResult, error) {
	var res ImportResult
	if err := s.requireStore(); err != nil {
		return res, err
	}
	if !t.Has(dataset.SubjectColumn) || !t.Has(IndexColumn) {
		return res, fmt.Errorf("%w: %s needs %s and %s", ErrInvalidInput, t.Name(), dataset.SubjectColumn, IndexColumn)
	}

	now := s.now()
	for _, row := range t.Records() {
		in, userID, ok := s.scoringInput(row)
		if !ok {
			res.Skipped++
			continue
		}
		if _, err := s.GetUser(ctx, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				res.Skipped++
				continue
			}
			return res, err
		}

		scored, err := s.scorer.Score(in)
		if err != nil {
			res.Skipped++
			continue
		}
		factors, err := json.Marshal(scored.Factors)
		if err != nil {
			return res, err
		}
		body := string(factors)
		if _, err := s.store.InsertRiskScore(ctx, model.RiskScore{
			UserID:    userID,
			Timestamp: now,
			Score:     scored.Score,
			Factors:   &body,
		}); err != nil {
			return res, fmt.Errorf("store score for user %d: %w", userID, err)
		}
		res.Imported++
	}

	s.logger.Info(ctx, "imported risk scores",
		logger.Int("imported", res.Imported), logger.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Service) scoringInput(row map[string]any) (scoring.Input, int64, bool) {
	subject, _ := row[dataset.SubjectColumn].(string)
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return scoring.Input{}, 0, false
	}
	in := scoring.Input{SubjectID: subject, Features: map[string]float64{}}
	if v, ok := row[IndexColumn].(float64); ok {
		in.Index = &v
	}
	for _, name := range s.scorer.Features() {
		if v, ok := row[name].(float64); ok {
			in.Features[name] = v
		}
	}
	return in, userID, true
}
