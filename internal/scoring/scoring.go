// Package scoring runs the credit-risk pipeline: engineer features, align
// them to the trained classifier, predict the default probability, and
// translate it into a credit score, risk tier, and explanation.
package scoring

import (
	"math"

	"github.com/pmehra7/loanbook/internal/features"
)

// Risk tiers assigned from the predicted default probability.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Recommendations paired with each tier.
const (
	RecommendApprove    = "Approve"
	RecommendReview     = "Manual Review Required"
	RecommendCollateral = "Reject or Require Collateral"
)

// Score scale bounds.
const (
	scoreCeiling = 850
	scoreFloor   = 300
	scoreRange   = 550
)

// Tier boundaries on the default probability. A probability exactly on a
// boundary lands in the higher-risk side.
const (
	lowCutoff    = 0.30
	mediumCutoff = 0.50
)

// Contributor is one feature's signed impact on the predicted probability.
type Contributor struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
}

// Factors surfaces the headline affordability numbers alongside a prediction.
type Factors struct {
	DebtToIncomeRatio float64 `json:"debt_to_income_ratio"`
	LoanToIncomeRatio float64 `json:"loan_to_income_ratio"`
	MonthlyIncome     float64 `json:"monthly_income"`
}

// Prediction is the full scoring result for one application.
type Prediction struct {
	CreditScore     float64       `json:"credit_score"`
	RiskProbability float64       `json:"risk_probability"`
	RiskLevel       string        `json:"risk_level"`
	Recommendation  string        `json:"recommendation"`
	ModelConfidence float64       `json:"model_confidence"`
	Contributors    []Contributor `json:"contributors"`
	Factors         Factors       `json:"factors"`
}

// Classifier is the prediction surface of the loaded model artifact.
type Classifier interface {
	FeatureNames() []string
	PredictProbability(features []float64) (float64, error)
}

// Attributor is the optional introspection capability of a classifier.
// Classifiers without it always explain via the heuristic fallback.
type Attributor interface {
	Attribute(features []float64) ([]float64, error)
}

// creditScore maps a default probability onto the 300-850 scale.
func creditScore(probability float64) float64 {
	score := scoreCeiling - probability*scoreRange
	return math.Max(scoreFloor, math.Min(scoreCeiling, score))
}

// tier assigns the risk level and recommendation for a probability.
func tier(probability float64) (level, recommendation string) {
	switch {
	case probability < lowCutoff:
		return RiskLow, RecommendApprove
	case probability < mediumCutoff:
		return RiskMedium, RecommendReview
	default:
		return RiskHigh, RecommendCollateral
	}
}

// newPrediction assembles the response fields from a probability, the
// selected contributors, and the engineered vector's affordability columns.
func newPrediction(probability float64, contributors []Contributor, v features.Vector) *Prediction {
	level, rec := tier(probability)
	dti, _ := v.Get("debt_to_income_ratio")
	lti, _ := v.Get("loan_to_income_ratio")
	income, _ := v.Get("monthly_income")
	return &Prediction{
		CreditScore:     round2(creditScore(probability)),
		RiskProbability: round4(probability),
		RiskLevel:       level,
		Recommendation:  rec,
		ModelConfidence: round4(math.Max(probability, 1-probability)),
		Contributors:    contributors,
		Factors: Factors{
			DebtToIncomeRatio: round2(dti),
			LoanToIncomeRatio: round2(lti),
			MonthlyIncome:     income,
		},
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
