// Package risk buckets subjects into Low/Medium/High risk from a scalar
// wellness (independence) index.
//
// Two methods are supported. Quantile splits the observed distribution at
// its 33rd and 66th percentiles; fixed uses the constant cut points -0.5 and
// 0.5. Quantile falls back to fixed when fewer than three distinct finite
// index values are present.
package risk

import (
	"math"
	"sort"
	"strings"
)

// Method selects how thresholds are derived.
type Method string

// Supported methods.
const (
	MethodQuantile Method = "quantile"
	MethodFixed    Method = "fixed"
)

// Level is the categorical risk label.
type Level string

// Risk levels.
const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Threshold constants.
const (
	FixedLowThreshold  = -0.5
	FixedHighThreshold = 0.5

	lowQuantile  = 0.33
	highQuantile = 0.66

	minDistinctForQuantile = 3
)

// WellnessRecord is one scored subject as produced by the offline batch
// scoring process. A nil Index means the value is missing.
type WellnessRecord struct {
	SubjectID string
	Index     *float64
	Features  map[string]float64
}

// Assessment is the label assigned to a single subject.
type Assessment struct {
	SubjectID string  `json:"subject_id"`
	Index     float64 `json:"independence_index"`
	Level     Level   `json:"risk_level"`
}

// Meta describes the thresholds actually used for a batch.
type Meta struct {
	Method        Method  `json:"method"`
	LowThreshold  float64 `json:"low_threshold"`
	HighThreshold float64 `json:"high_threshold"`
}

// ParseMethod maps a request parameter to a Method. The empty string selects
// the quantile default; any other unknown value is rejected.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.TrimSpace(s)) {
	case "", MethodQuantile:
		return MethodQuantile, nil
	case MethodFixed:
		return MethodFixed, nil
	default:
		return "", invalidMethod(s)
	}
}

// Classify labels every record that carries an index value and reports the
// thresholds used. Output order follows input order. Records with a nil or
// NaN index are skipped and take no part in threshold computation.
func Classify(records []WellnessRecord, method Method) ([]Assessment, Meta) {
	values := make([]float64, 0, len(records))
	kept := make([]WellnessRecord, 0, len(records))
	for _, r := range records {
		if r.Index == nil || math.IsNaN(*r.Index) {
			continue
		}
		kept = append(kept, r)
		values = append(values, *r.Index)
	}

	meta := thresholds(values, method)
	label := labelFixed
	if meta.Method == MethodQuantile {
		label = func(v float64) Level { return labelQuantile(v, meta.LowThreshold, meta.HighThreshold) }
	}

	out := make([]Assessment, len(kept))
	for i, r := range kept {
		out[i] = Assessment{SubjectID: r.SubjectID, Index: *r.Index, Level: label(*r.Index)}
	}
	return out, meta
}

// thresholds picks the method that will actually run and its cut points.
func thresholds(values []float64, method Method) Meta {
	if method == MethodQuantile {
		finite := finiteSorted(values)
		if distinctSorted(finite) >= minDistinctForQuantile {
			return Meta{
				Method:        MethodQuantile,
				LowThreshold:  Quantile(finite, lowQuantile),
				HighThreshold: Quantile(finite, highQuantile),
			}
		}
	}
	return Meta{Method: MethodFixed, LowThreshold: FixedLowThreshold, HighThreshold: FixedHighThreshold}
}

// labelQuantile uses inclusive upper bounds on both bands.
func labelQuantile(v, low, high float64) Level {
	switch {
	case v <= low:
		return LevelLow
	case v <= high:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// labelFixed keeps a strict upper bound on the Medium band, so 0.5 is High.
func labelFixed(v float64) Level {
	switch {
	case v <= FixedLowThreshold:
		return LevelLow
	case v < FixedHighThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Quantile returns the q-th quantile of sorted using linear interpolation
// between the two nearest ranks: h = (n-1)q, x[floor(h)] + frac(h)*(x[floor(h)+1]-x[floor(h)]).
// sorted must be ascending. An empty slice yields NaN.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func finiteSorted(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func distinctSorted(sorted []float64) int {
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}
