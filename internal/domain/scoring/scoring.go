// Package scoring turns a subject's independence index and optional activity
// features into a 0-100 wellness risk score with a per-factor breakdown.
// Higher scores mean higher risk.
package scoring

import (
	"errors"
	"math"
	"sort"
)

// Default scoring configuration constants.
const (
	baselineScore      = 50
	defaultIndexWeight = 25
	maxScoreValue      = 100
)

// IndexFactor is the factor name of the independence index contribution.
const IndexFactor = "independence_index"

// ErrNoIndex is returned for a subject without a finite independence index.
var ErrNoIndex = errors.New("independence index missing")

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithIndexWeight sets how many points one unit of independence index removes.
func WithIndexWeight(w float64) Option {
	return func(s *Scorer) {
		if w > 0 {
			s.indexWeight = w
		}
	}
}

// WithFeatureWeights sets per-feature weights. A positive weight raises the
// score as the feature grows; a negative one lowers it. Zero weights are dropped.
func WithFeatureWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		s.featureWeights = make(map[string]float64, len(weights))
		for name, w := range weights {
			if w != 0 {
				s.featureWeights[name] = w
			}
		}
	}
}

// Input abstracts the subject fields needed for scoring.
type Input struct {
	SubjectID string
	Index     *float64
	Features  map[string]float64
}

// Result contains the computed score for a subject.
type Result struct {
	SubjectID string             `json:"subject_id"`
	Score     float64            `json:"score"`
	Factors   map[string]float64 `json:"factors"`
}

// Scorer computes wellness risk scores. It is safe for concurrent use after construction.
type Scorer struct {
	indexWeight    float64
	featureWeights map[string]float64
}

// New creates a scorer with configuration options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		indexWeight:    defaultIndexWeight,
		featureWeights: map[string]float64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Features lists the weighted feature names in sorted order.
func (s *Scorer) Features() []string {
	out := make([]string, 0, len(s.featureWeights))
	for name := range s.featureWeights {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Score computes baseline - indexWeight*index + sum(weight*feature), clamped to [0,100].
// Weighted features absent from the input, or non-finite, contribute nothing.
func (s *Scorer) Score(in Input) (Result, error) {
	if in.Index == nil || math.IsNaN(*in.Index) || math.IsInf(*in.Index, 0) {
		return Result{}, ErrNoIndex
	}

	factors := map[string]float64{IndexFactor: -s.indexWeight * *in.Index}
	score := baselineScore + factors[IndexFactor]
	for name, w := range s.featureWeights {
		v, ok := in.Features[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		factors[name] = w * v
		score += factors[name]
	}

	return Result{
		SubjectID: in.SubjectID,
		Score:     math.Max(0, math.Min(maxScoreValue, score)),
		Factors:   factors,
	}, nil
}
