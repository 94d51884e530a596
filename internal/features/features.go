// Package features engineers the model input vector for a loan application.
//
// The engineered columns must match the training pipeline exactly: same
// names, same formulas, same encodings. Any drift between this package and
// the trained artifact silently degrades predictions, so the canonical
// column list lives here and the scorer aligns it against the artifact's
// declared order at request time.
package features

import (
	"errors"
	"fmt"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEmploymentNotFound = errors.New("employment record not found")
	ErrZeroIncome         = errors.New("monthly income must be positive")
	ErrUnknownPurpose     = errors.New("unknown loan purpose")
	ErrInvalidLoan        = errors.New("invalid loan request")
)

// Purposes accepted on loan applications, matching the one-hot columns the
// model was trained on.
var Purposes = []string{
	"Business Expansion",
	"Debt Consolidation",
	"Education",
	"Home Purchase",
	"Home Renovation",
	"Medical Emergency",
	"Vehicle Purchase",
	"Wedding Expenses",
}

// encodedStates are the states with dedicated one-hot columns; everything
// else folds into state_Other.
var encodedStates = []string{"Gujarat", "Maharashtra", "Punjab", "Telangana"}

// canonicalOrder is the engineered column order this package emits.
// The model artifact declares its own order; Align reconciles the two.
var canonicalOrder = []string{
	"age",
	"gender_encoded",
	"age_group_encoded",
	"monthly_income",
	"years_of_experience",
	"experience_encoded",
	"loan_amount",
	"loan_tenure_months",
	"interest_rate",
	"debt_to_income_ratio",
	"loan_to_income_ratio",
	"estimated_emi",
	"high_risk_flag",
	"employment_Self-Employed",
	"employment_Salaried",
	"purpose_Business Expansion",
	"purpose_Debt Consolidation",
	"purpose_Education",
	"purpose_Home Purchase",
	"purpose_Home Renovation",
	"purpose_Medical Emergency",
	"purpose_Vehicle Purchase",
	"purpose_Wedding Expenses",
	"state_Gujarat",
	"state_Maharashtra",
	"state_Punjab",
	"state_Telangana",
	"state_Other",
}

// LoanRequest carries the application terms a score is requested for.
type LoanRequest struct {
	Amount       float64 `json:"loan_amount"`
	TenureMonths int     `json:"loan_tenure_months"`
	InterestRate float64 `json:"interest_rate"`
	Purpose      string  `json:"loan_purpose"`
}

// Validate rejects terms the feature formulas cannot handle.
func (r LoanRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: loan amount must be positive", ErrInvalidLoan)
	}
	if r.TenureMonths <= 0 {
		return fmt.Errorf("%w: loan tenure must be positive", ErrInvalidLoan)
	}
	if r.InterestRate < 0 {
		return fmt.Errorf("%w: interest rate cannot be negative", ErrInvalidLoan)
	}
	if !validPurpose(r.Purpose) {
		return fmt.Errorf("%w: %q", ErrUnknownPurpose, r.Purpose)
	}
	return nil
}

func validPurpose(p string) bool {
	for _, v := range Purposes {
		if v == p {
			return true
		}
	}
	return false
}

// Vector is an engineered feature set in canonical column order.
type Vector struct {
	names  []string
	values []float64
	index  map[string]int
}

// Names returns the column names in emission order.
func (v Vector) Names() []string { return v.names }

// Values returns the column values in emission order.
func (v Vector) Values() []float64 { return v.values }

// Get looks a column up by name.
func (v Vector) Get(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

func newVector(values map[string]float64) Vector {
	v := Vector{
		names:  canonicalOrder,
		values: make([]float64, len(canonicalOrder)),
		index:  make(map[string]int, len(canonicalOrder)),
	}
	for i, name := range canonicalOrder {
		v.values[i] = values[name]
		v.index[name] = i
	}
	return v
}

// Align reorders a vector to the column order a model artifact declares.
// Columns the model expects but the vector lacks are zero-filled; columns
// the vector carries but the model does not know are dropped. Align is
// total: it never fails, and aligning an already-aligned vector is a no-op.
func Align(modelColumns []string, v Vector) []float64 {
	out := make([]float64, len(modelColumns))
	for i, name := range modelColumns {
		if val, ok := v.Get(name); ok {
			out[i] = val
		}
	}
	return out
}
