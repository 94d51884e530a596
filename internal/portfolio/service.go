package portfolio

import (
	"context"
	"fmt"
	"math"

	"github.com/pmehra7/loanbook/internal/finance"
	"github.com/pmehra7/loanbook/internal/loans"
)

// Service aggregates store-level stats into portfolio analytics.
type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Summary returns the headline portfolio health view.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	loanStats, err := s.source.LoanStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loan stats: %w", err)
	}
	appStats, err := s.source.ApplicationStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("application stats: %w", err)
	}
	npa, err := s.source.NPAStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("npa stats: %w", err)
	}

	approvalRate := 0.0
	if appStats.Total > 0 {
		approvalRate = round2(float64(appStats.Approved) / float64(appStats.Total) * 100)
	}

	return &Summary{
		LoanStatistics: loanStats,
		FinancialMetrics: FinancialMetrics{
			TotalDisbursed:   loanStats.TotalDisbursed,
			TotalOutstanding: loanStats.TotalOutstanding,
			AverageLoanSize:  loanStats.AverageLoanSize,
			TotalNPAAmount:   npa.TotalAmount,
		},
		RiskMetrics: RiskMetrics{
			NPARatio:     finance.NPARatio(npa.TotalAmount, loanStats.TotalOutstanding),
			DefaultRate:  finance.DefaultRate(loanStats.DefaultedLoans, loanStats.TotalLoans),
			ApprovalRate: approvalRate,
		},
		ApplicationStatistics: appStats,
	}, nil
}

// NPAAnalysis returns exposure broken down by NPA classification.
func (s *Service) NPAAnalysis(ctx context.Context) (*NPAAnalysis, error) {
	breakdown, err := s.source.NPAStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("npa stats: %w", err)
	}

	analysis := &NPAAnalysis{
		TotalNPALoans:    breakdown.TotalLoans,
		TotalNPAAmount:   breakdown.TotalAmount,
		ByClassification: make(map[string]int, len(breakdown.ByClass)),
		AmountByClass:    make(map[string]float64, len(breakdown.ByClass)),
	}
	for class, bucket := range breakdown.ByClass {
		analysis.ByClassification[class] = bucket.Count
		analysis.AmountByClass[class] = bucket.Amount
	}
	return analysis, nil
}

// RepaymentPerformance returns on-time payment metrics.
func (s *Service) RepaymentPerformance(ctx context.Context) (*RepaymentPerformance, error) {
	stats, err := s.source.RepaymentStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("repayment stats: %w", err)
	}

	onTime := stats.Total - stats.Late
	pct := 0.0
	if stats.Total > 0 {
		pct = round2(float64(onTime) / float64(stats.Total) * 100)
	}

	return &RepaymentPerformance{
		TotalRepayments:  stats.Total,
		OnTimePayments:   onTime,
		LatePayments:     stats.Late,
		OnTimePercentage: pct,
		TotalLateFees:    stats.TotalLateFees,
		AverageAmount:    stats.AverageAmount,
	}, nil
}

// CollateralAnalysis returns coverage totals and the mean LTV over loans
// that have pledged collateral.
func (s *Service) CollateralAnalysis(ctx context.Context) (*CollateralAnalysis, error) {
	stats, err := s.source.CollateralStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("collateral stats: %w", err)
	}

	avgLTV := 0.0
	if len(stats.Pairs) > 0 {
		var sum float64
		for _, pair := range stats.Pairs {
			sum += finance.LTV(pair.LoanAmount, pair.CollateralValue)
		}
		avgLTV = round2(sum / float64(len(stats.Pairs)))
	}

	return &CollateralAnalysis{
		TotalCollateralValue: stats.TotalValue,
		ByType:               stats.ByType,
		AverageLTV:           avgLTV,
		LoansWithCollateral:  len(stats.Pairs),
	}, nil
}

// Distribution returns concentration by purpose and loan status.
func (s *Service) Distribution(ctx context.Context) (loans.Distribution, error) {
	return s.source.Distribution(ctx)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
