package scoring

import (
	"math"
	"sort"

	"github.com/pmehra7/loanbook/internal/metrics"
)

// maxContributors caps the explanation length.
const maxContributors = 5

// impactFloor drops near-zero impacts from the explanation.
const impactFloor = 0.001

// explain produces the per-feature contribution list for one prediction.
// It prefers the classifier's own path attribution; if the classifier lacks
// the capability, or its output is unusable (wrong length, NaN, Inf), it
// falls back to an affordability heuristic. Explanation never fails a
// scoring request: if even the fallback cannot be computed the list is
// empty.
func (s *Service) explain(names []string, aligned []float64) []Contributor {
	if att, ok := s.classifier.(Attributor); ok {
		impacts, err := att.Attribute(aligned)
		if err == nil && usable(impacts, len(names)) {
			return topContributors(names, impacts)
		}
	}
	metrics.AttributionFallbacksTotal.Inc()
	return topContributors(names, fallbackImpacts(names, aligned))
}

// usable rejects attribution output that cannot be zipped with the feature
// names or contains non-finite values.
func usable(impacts []float64, wantLen int) bool {
	if len(impacts) != wantLen {
		return false
	}
	for _, v := range impacts {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// fallbackImpacts scores the three affordability drivers directly: debt
// burden above 40% DTI, leverage above 30x LTI, and income below 50k each
// push risk up; the mirror conditions pull it down. All other features get
// zero impact.
func fallbackImpacts(names []string, aligned []float64) []float64 {
	impacts := make([]float64, len(names))
	for i, name := range names {
		switch name {
		case "debt_to_income_ratio":
			impacts[i] = (aligned[i] - 40) * 0.015
		case "loan_to_income_ratio":
			impacts[i] = (aligned[i] - 30) * 0.01
		case "monthly_income":
			impacts[i] = (50000 - aligned[i]) * 0.00001
		}
	}
	return impacts
}

// topContributors sorts by absolute impact and keeps the strongest few,
// dropping anything below the noise floor.
func topContributors(names []string, impacts []float64) []Contributor {
	if len(names) != len(impacts) {
		return []Contributor{}
	}
	all := make([]Contributor, len(names))
	for i := range names {
		all[i] = Contributor{Feature: names[i], Impact: impacts[i]}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return math.Abs(all[i].Impact) > math.Abs(all[j].Impact)
	})

	out := make([]Contributor, 0, maxContributors)
	for _, c := range all {
		if len(out) == maxContributors {
			break
		}
		if math.Abs(c.Impact) > impactFloor {
			out = append(out, c)
		}
	}
	return out
}
