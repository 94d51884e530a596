// Package finance implements the standard credit-portfolio formulas used by
// the loans and portfolio endpoints: amortized EMI, NPA ratio, default rate,
// LTV, DTI, risk-weighted assets, and provision coverage.
//
// The EMI here is the amortized display value shown to borrowers. The scoring
// feature pipeline intentionally uses a simpler loan_amount/tenure estimate
// instead; the two must not be unified because the classifier was trained on
// the simplified distribution.
package finance

import "math"

// EMI calculates the equated monthly installment using the standard
// amortization formula: P·r·(1+r)^n / ((1+r)^n − 1), where r is the monthly
// rate. A 0% rate degenerates to straight principal division.
func EMI(principal, annualRate float64, tenureMonths int) float64 {
	monthlyRate := annualRate / (12 * 100)

	if monthlyRate == 0 {
		return round2(principal / float64(tenureMonths))
	}

	growth := math.Pow(1+monthlyRate, float64(tenureMonths))
	emi := principal * monthlyRate * growth / (growth - 1)
	return round2(emi)
}

// NPARatio returns (NPA amount / total outstanding) × 100.
// Zero outstanding yields 0.
func NPARatio(npaAmount, totalOutstanding float64) float64 {
	if totalOutstanding == 0 {
		return 0
	}
	return round2(npaAmount / totalOutstanding * 100)
}

// DefaultRate returns (defaulted loans / total loans) × 100.
// Zero total yields 0.
func DefaultRate(defaultedLoans, totalLoans int) float64 {
	if totalLoans == 0 {
		return 0
	}
	return round2(float64(defaultedLoans) / float64(totalLoans) * 100)
}

// LTV returns (loan amount / collateral value) × 100.
// No collateral means full exposure: 100.
func LTV(loanAmount, collateralValue float64) float64 {
	if collateralValue == 0 {
		return 100
	}
	return round2(loanAmount / collateralValue * 100)
}

// DTI returns (monthly debt / monthly income) × 100.
// No income means full exposure: 100.
func DTI(monthlyDebt, monthlyIncome float64) float64 {
	if monthlyIncome == 0 {
		return 100
	}
	return round2(monthlyDebt / monthlyIncome * 100)
}

// RiskWeightedAssets returns exposure × risk weight (Basel III).
func RiskWeightedAssets(loanAmount, riskWeight float64) float64 {
	return round2(loanAmount * riskWeight)
}

// ProvisionCoverageRatio returns (provisions / NPAs) × 100.
// Zero NPAs means full coverage: 100.
func ProvisionCoverageRatio(provisions, npas float64) float64 {
	if npas == 0 {
		return 100
	}
	return round2(provisions / npas * 100)
}

// Installment is one row of an amortization schedule.
type Installment struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// AmortizationSchedule generates the month-by-month principal/interest split
// for a loan. The final month absorbs rounding drift so the balance closes
// at exactly zero.
func AmortizationSchedule(principal, annualRate float64, tenureMonths int) []Installment {
	emi := EMI(principal, annualRate, tenureMonths)
	monthlyRate := annualRate / (12 * 100)

	schedule := make([]Installment, 0, tenureMonths)
	balance := principal

	for month := 1; month <= tenureMonths; month++ {
		interest := balance * monthlyRate
		principalPart := emi - interest
		balance -= principalPart

		if month == tenureMonths {
			principalPart += balance
			balance = 0
		}

		schedule = append(schedule, Installment{
			Month:     month,
			EMI:       emi,
			Principal: round2(principalPart),
			Interest:  round2(interest),
			Balance:   round2(math.Max(balance, 0)),
		})
	}

	return schedule
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
