package features

import (
	"context"
	"fmt"
	"time"
)

// CustomerFacts is the customer and employment data the feature formulas
// consume. The storage layer adapts its records to this shape.
type CustomerFacts struct {
	DateOfBirth       time.Time
	Gender            string
	State             string
	EmploymentType    string
	MonthlyIncome     float64
	YearsOfExperience float64
}

// CustomerSource resolves a customer's facts by ID. Implementations return
// ErrCustomerNotFound or ErrEmploymentNotFound (possibly wrapped) when the
// records are absent.
type CustomerSource interface {
	Facts(ctx context.Context, customerID string) (CustomerFacts, error)
}

// Builder engineers feature vectors from customer facts and loan terms.
type Builder struct {
	source CustomerSource
	now    func() time.Time
}

// Option customizes a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for age calculation.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(source CustomerSource, opts ...Option) *Builder {
	b := &Builder{source: source, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates the loan terms, fetches the customer's facts and engineers
// the full vector. Income must be positive because the debt ratios divide
// by it.
func (b *Builder) Build(ctx context.Context, customerID string, req LoanRequest) (Vector, error) {
	if err := req.Validate(); err != nil {
		return Vector{}, err
	}
	facts, err := b.source.Facts(ctx, customerID)
	if err != nil {
		return Vector{}, fmt.Errorf("fetch facts for %s: %w", customerID, err)
	}
	return b.FromFacts(facts, req)
}

// FromFacts engineers a vector from already-resolved facts. Split out so
// batch scoring can reuse facts it has in hand.
func (b *Builder) FromFacts(facts CustomerFacts, req LoanRequest) (Vector, error) {
	if err := req.Validate(); err != nil {
		return Vector{}, err
	}
	if facts.MonthlyIncome <= 0 {
		return Vector{}, ErrZeroIncome
	}

	age := ageYears(b.now(), facts.DateOfBirth)

	// Estimated EMI is a flat division by tenure, not the amortized
	// installment: the model was trained on this column and changing the
	// formula would skew every prediction. Display math lives in the
	// finance package.
	estimatedEMI := req.Amount / float64(req.TenureMonths)
	dti := estimatedEMI / facts.MonthlyIncome * 100
	lti := req.Amount / facts.MonthlyIncome

	highRisk := 0.0
	if dti > 50 || lti > 36 || facts.MonthlyIncome < 30000 {
		highRisk = 1
	}

	vals := map[string]float64{
		"age":                  age,
		"gender_encoded":       boolToFloat(facts.Gender == "Male"),
		"age_group_encoded":    float64(ageGroup(age)),
		"monthly_income":       facts.MonthlyIncome,
		"years_of_experience":  facts.YearsOfExperience,
		"experience_encoded":   float64(experienceGroup(facts.YearsOfExperience)),
		"loan_amount":          req.Amount,
		"loan_tenure_months":   float64(req.TenureMonths),
		"interest_rate":        req.InterestRate,
		"debt_to_income_ratio": dti,
		"loan_to_income_ratio": lti,
		"estimated_emi":        estimatedEMI,
		"high_risk_flag":       highRisk,
	}
	vals["employment_Self-Employed"] = boolToFloat(facts.EmploymentType == "Self-Employed")
	vals["employment_Salaried"] = boolToFloat(facts.EmploymentType == "Salaried")
	for _, p := range Purposes {
		vals["purpose_"+p] = boolToFloat(req.Purpose == p)
	}
	other := true
	for _, s := range encodedStates {
		hit := facts.State == s
		vals["state_"+s] = boolToFloat(hit)
		if hit {
			other = false
		}
	}
	vals["state_Other"] = boolToFloat(other)

	return newVector(vals), nil
}

// ageYears converts a date of birth to fractional years at now, using whole
// elapsed days over the mean year length.
func ageYears(now, dob time.Time) float64 {
	days := int(now.Sub(dob).Hours() / 24)
	return float64(days) / 365.25
}

// ageGroup buckets age into the ordinal the encoder was fit with.
func ageGroup(age float64) int {
	switch {
	case age <= 25:
		return 0
	case age <= 35:
		return 1
	case age <= 45:
		return 2
	case age <= 55:
		return 3
	default:
		return 4
	}
}

func experienceGroup(years float64) int {
	switch {
	case years <= 2:
		return 0
	case years <= 5:
		return 1
	case years <= 10:
		return 2
	default:
		return 3
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
