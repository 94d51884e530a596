package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmehra7/loanbook/internal/features"
)

// FactsSource adapts the customer store to the feature builder's
// CustomerSource interface, translating storage errors into the sentinel
// errors the scoring pipeline maps to HTTP statuses.
type FactsSource struct {
	store Store
}

// NewFactsSource wraps a customer store for feature engineering.
func NewFactsSource(store Store) *FactsSource {
	return &FactsSource{store: store}
}

var _ features.CustomerSource = (*FactsSource)(nil)

// Facts resolves the customer and employment fields the feature formulas
// consume.
func (f *FactsSource) Facts(ctx context.Context, customerID string) (features.CustomerFacts, error) {
	customer, err := f.store.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return features.CustomerFacts{}, fmt.Errorf("%w: %s", features.ErrCustomerNotFound, customerID)
		}
		return features.CustomerFacts{}, err
	}
	employment, err := f.store.GetEmployment(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrEmploymentNotFound) {
			return features.CustomerFacts{}, fmt.Errorf("%w: %s", features.ErrEmploymentNotFound, customerID)
		}
		return features.CustomerFacts{}, err
	}
	return features.CustomerFacts{
		DateOfBirth:       customer.DateOfBirth,
		Gender:            customer.Gender,
		State:             customer.State,
		EmploymentType:    employment.EmploymentType,
		MonthlyIncome:     employment.MonthlyIncome,
		YearsOfExperience: employment.YearsOfExperience,
	}, nil
}
