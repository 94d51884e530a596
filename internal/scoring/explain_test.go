package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainFallsBackOnBadAttribution(t *testing.T) {
	names := vectorNames(t)

	cases := map[string]attributingClassifier{
		"attribution error": {
			stubClassifier: stubClassifier{names: names, prob: 0.2},
			attErr:         assert.AnError,
		},
		"wrong length": {
			stubClassifier: stubClassifier{names: names, prob: 0.2},
			impacts:        []float64{0.1, 0.2},
		},
		"nan impact": {
			stubClassifier: stubClassifier{names: names, prob: 0.2},
			impacts:        append([]float64{math.NaN()}, make([]float64, len(names)-1)...),
		},
		"inf impact": {
			stubClassifier: stubClassifier{names: names, prob: 0.2},
			impacts:        append([]float64{math.Inf(1)}, make([]float64, len(names)-1)...),
		},
	}
	for name, clf := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, clf)
			pred, err := svc.Score(context.Background(), solventRequest())
			require.NoError(t, err)
			// Heuristic output for the solvent profile.
			require.Len(t, pred.Contributors, 3)
			assert.Equal(t, "monthly_income", pred.Contributors[0].Feature)
		})
	}
}

func TestTopContributorsFiltersAndCaps(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	impacts := []float64{0.5, -0.4, 0.3, 0.0005, -0.2, 0.1, 0.05}

	got := topContributors(names, impacts)
	require.Len(t, got, 5)
	assert.Equal(t, "a", got[0].Feature)
	assert.Equal(t, "b", got[1].Feature)
	assert.Equal(t, "c", got[2].Feature)
	assert.Equal(t, "e", got[3].Feature)
	assert.Equal(t, "f", got[4].Feature)
	// d is below the noise floor and never appears.
	for _, c := range got {
		assert.NotEqual(t, "d", c.Feature)
	}
}

func TestTopContributorsMismatchedInput(t *testing.T) {
	got := topContributors([]string{"a", "b"}, []float64{0.1})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestFallbackImpactFormulas(t *testing.T) {
	names := []string{"debt_to_income_ratio", "loan_to_income_ratio", "monthly_income", "age"}
	aligned := []float64{60, 40, 20000, 35}

	impacts := fallbackImpacts(names, aligned)
	assert.InDelta(t, 0.30, impacts[0], 1e-9) // (60-40)*0.015
	assert.InDelta(t, 0.10, impacts[1], 1e-9) // (40-30)*0.01
	assert.InDelta(t, 0.30, impacts[2], 1e-9) // (50000-20000)*0.00001
	assert.Zero(t, impacts[3])
}
