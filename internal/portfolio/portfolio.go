// Package portfolio computes book-level health metrics over the loan store:
// NPA ratio, default rate, approval rate, repayment performance, collateral
// coverage, and concentration by purpose and status.
package portfolio

import (
	"context"

	"github.com/pmehra7/loanbook/internal/loans"
)

// Source is the slice of the loan store the analytics need. Both the
// Postgres and in-memory stores satisfy it.
type Source interface {
	LoanStats(ctx context.Context) (loans.LoanStats, error)
	ApplicationStats(ctx context.Context) (loans.ApplicationStats, error)
	NPAStats(ctx context.Context) (loans.NPABreakdown, error)
	RepaymentStats(ctx context.Context) (loans.RepaymentStats, error)
	CollateralStats(ctx context.Context) (loans.CollateralStats, error)
	Distribution(ctx context.Context) (loans.Distribution, error)
}

var _ Source = (loans.Store)(nil)

// Summary is the top-level portfolio health view.
type Summary struct {
	LoanStatistics        loans.LoanStats        `json:"loan_statistics"`
	FinancialMetrics      FinancialMetrics       `json:"financial_metrics"`
	RiskMetrics           RiskMetrics            `json:"risk_metrics"`
	ApplicationStatistics loans.ApplicationStats `json:"application_statistics"`
}

// FinancialMetrics are the money-side aggregates of the book.
type FinancialMetrics struct {
	TotalDisbursed   float64 `json:"total_disbursed"`
	TotalOutstanding float64 `json:"total_outstanding"`
	AverageLoanSize  float64 `json:"average_loan_size"`
	TotalNPAAmount   float64 `json:"total_npa_amount"`
}

// RiskMetrics are the headline percentages regulators and lenders watch.
type RiskMetrics struct {
	NPARatio     float64 `json:"npa_ratio"`
	DefaultRate  float64 `json:"default_rate"`
	ApprovalRate float64 `json:"approval_rate"`
}

// NPAAnalysis breaks NPA exposure down by classification.
type NPAAnalysis struct {
	TotalNPALoans    int                `json:"total_npa_loans"`
	TotalNPAAmount   float64            `json:"total_npa_amount"`
	ByClassification map[string]int     `json:"npa_by_classification"`
	AmountByClass    map[string]float64 `json:"npa_amount_by_classification"`
}

// RepaymentPerformance reports on-time behavior across all repayments.
type RepaymentPerformance struct {
	TotalRepayments  int     `json:"total_repayments"`
	OnTimePayments   int     `json:"on_time_payments"`
	LatePayments     int     `json:"late_payments"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	TotalLateFees    float64 `json:"total_late_fees_collected"`
	AverageAmount    float64 `json:"average_repayment_amount"`
}

// CollateralAnalysis reports coverage and average loan-to-value.
type CollateralAnalysis struct {
	TotalCollateralValue float64                           `json:"total_collateral_value"`
	ByType               map[string]loans.CollateralBucket `json:"collateral_by_type"`
	AverageLTV           float64                           `json:"average_ltv_ratio"`
	LoansWithCollateral  int                               `json:"loans_with_collateral"`
}
