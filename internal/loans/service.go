package loans

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmehra7/loanbook/internal/customers"
	"github.com/pmehra7/loanbook/internal/finance"
	"github.com/pmehra7/loanbook/internal/logging"
	"github.com/pmehra7/loanbook/internal/metrics"
	"github.com/pmehra7/loanbook/internal/scoring"
	"github.com/pmehra7/loanbook/internal/traces"
)

// Notifier receives loan lifecycle events as they happen. Implementations
// must not block: the service calls them inline.
type Notifier interface {
	ApplicationDecided(ctx context.Context, app *Application, pred *scoring.Prediction)
	RepaymentRecorded(ctx context.Context, loan *Loan, repayment *Repayment)
	NPAMarked(ctx context.Context, loan *Loan, rec *NPARecord)
}

// Service provides loan business logic.
type Service struct {
	store     Store
	scorer    *scoring.Service
	customers *customers.Service
	notifier  Notifier
}

// NewService creates a new loan service. notifier may be nil.
func NewService(store Store, scorer *scoring.Service, customerSvc *customers.Service, notifier Notifier) *Service {
	return &Service{store: store, scorer: scorer, customers: customerSvc, notifier: notifier}
}

// SubmitResult is what an application submission returns: the stored
// application plus the full prediction, and the disbursed loan when the
// application was auto-approved.
type SubmitResult struct {
	Application *Application
	Prediction  *scoring.Prediction
	Loan        *Loan
}

// Submit scores a loan application and persists it with the status derived
// from the risk tier: Low risk auto-approves, Medium queues for manual
// review, High rejects. Approved applications disburse a loan immediately.
func (s *Service) Submit(ctx context.Context, req scoring.ScoreRequest) (*SubmitResult, error) {
	ctx, span := traces.StartSpan(ctx, "loans.Submit",
		traces.CustomerID(req.CustomerID),
		traces.LoanAmount(req.Amount))
	defer span.End()

	customer, err := s.customers.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	pred, err := s.scorer.Score(ctx, req)
	if err != nil {
		return nil, err
	}

	status := statusForTier(pred.RiskLevel)
	now := time.Now()
	app := &Application{
		ID:              uuid.NewString(),
		CustomerID:      req.CustomerID,
		CustomerName:    customer.FullName,
		Amount:          req.Amount,
		Purpose:         req.Purpose,
		TenureMonths:    req.TenureMonths,
		InterestRate:    req.InterestRate,
		Status:          status,
		CreditScore:     pred.CreditScore,
		RiskProbability: pred.RiskProbability,
		Remarks:         pred.Recommendation,
		AppliedAt:       now,
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	metrics.ApplicationsTotal.WithLabelValues(status).Inc()
	span.SetAttributes(traces.ApplicationID(app.ID), traces.RiskLevel(pred.RiskLevel))

	result := &SubmitResult{Application: app, Prediction: pred}
	if status == StatusApproved {
		loan := &Loan{
			ID:                 uuid.NewString(),
			ApplicationID:      app.ID,
			CustomerID:         app.CustomerID,
			CustomerName:       app.CustomerName,
			Amount:             app.Amount,
			DisbursedAmount:    app.Amount,
			OutstandingBalance: app.Amount,
			InterestRate:       app.InterestRate,
			TenureMonths:       app.TenureMonths,
			EMI:                finance.EMI(app.Amount, app.InterestRate, app.TenureMonths),
			Status:             LoanActive,
			DisbursedAt:        now,
			UpdatedAt:          now,
		}
		if err := s.store.CreateLoan(ctx, loan); err != nil {
			return nil, fmt.Errorf("disburse loan: %w", err)
		}
		result.Loan = loan
	}

	logging.L(ctx).Info("application decided",
		"application_id", app.ID,
		"customer_id", app.CustomerID,
		"status", status,
		"credit_score", pred.CreditScore)
	if s.notifier != nil {
		s.notifier.ApplicationDecided(ctx, app, pred)
	}
	return result, nil
}

// statusForTier maps a risk tier to the application lifecycle status. The
// tier is the single source of truth: no threshold logic here.
func statusForTier(riskLevel string) string {
	switch riskLevel {
	case scoring.RiskLow:
		return StatusApproved
	case scoring.RiskHigh:
		return StatusRejected
	default:
		return StatusPending
	}
}

// GetApplication returns an application by ID.
func (s *Service) GetApplication(ctx context.Context, id string) (*Application, error) {
	return s.store.GetApplication(ctx, id)
}

// ListApplications returns a filtered page of applications plus the total
// count matching the filter.
func (s *Service) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, int, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListApplications(ctx, filter)
}

// ListLoans returns loans, optionally filtered by status.
func (s *Service) ListLoans(ctx context.Context, status string, limit int) ([]*Loan, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.ListLoans(ctx, status, limit)
}

// GetLoan returns a loan by ID.
func (s *Service) GetLoan(ctx context.Context, id string) (*Loan, error) {
	return s.store.GetLoan(ctx, id)
}

// Repay records an EMI payment and reduces the loan's outstanding balance.
// When the balance reaches zero the loan closes.
func (s *Service) Repay(ctx context.Context, loanID string, amount, lateFee float64, dueDate, paymentDate time.Time) (*Loan, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("repayment amount must be positive")
	}
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != LoanActive {
		return nil, ErrLoanClosed
	}

	repayment := &Repayment{
		ID:          uuid.NewString(),
		LoanID:      loanID,
		EMIDueDate:  dueDate,
		PaymentDate: paymentDate,
		AmountPaid:  amount,
		LateFee:     lateFee,
		CreatedAt:   time.Now(),
	}
	if err := s.store.RecordRepayment(ctx, repayment); err != nil {
		return nil, fmt.Errorf("record repayment: %w", err)
	}

	loan.OutstandingBalance -= amount
	if loan.OutstandingBalance <= 0 {
		loan.OutstandingBalance = 0
		loan.Status = LoanClosed
	}
	loan.UpdatedAt = time.Now()
	if err := s.store.UpdateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("update loan balance: %w", err)
	}
	if s.notifier != nil {
		s.notifier.RepaymentRecorded(ctx, loan, repayment)
	}
	return loan, nil
}

// PledgeCollateral registers an asset against a loan.
func (s *Service) PledgeCollateral(ctx context.Context, loanID, collateralType, description string, value float64) (*Collateral, error) {
	if value <= 0 {
		return nil, fmt.Errorf("collateral value must be positive")
	}
	if _, err := s.store.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	collateral := &Collateral{
		ID:          uuid.NewString(),
		LoanID:      loanID,
		Type:        collateralType,
		Value:       value,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.store.AddCollateral(ctx, collateral); err != nil {
		return nil, fmt.Errorf("add collateral: %w", err)
	}
	return collateral, nil
}

// MarkNPA records a loan as non-performing and moves it to Defaulted once
// it crosses the 90-day threshold.
func (s *Service) MarkNPA(ctx context.Context, loanID string, daysOverdue int, overdueAmount float64) (*NPARecord, error) {
	classification := ClassifyNPA(daysOverdue)
	if classification == "" {
		return nil, fmt.Errorf("loan is only %d days overdue; NPA starts at 90", daysOverdue)
	}
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	rec := &NPARecord{
		ID:             uuid.NewString(),
		LoanID:         loanID,
		Classification: classification,
		OverdueAmount:  overdueAmount,
		DaysOverdue:    daysOverdue,
		RecordedAt:     time.Now(),
	}
	if err := s.store.TrackNPA(ctx, rec); err != nil {
		return nil, fmt.Errorf("track npa: %w", err)
	}

	if loan.Status == LoanActive {
		loan.Status = LoanDefaulted
		loan.UpdatedAt = time.Now()
		if err := s.store.UpdateLoan(ctx, loan); err != nil {
			return nil, fmt.Errorf("mark loan defaulted: %w", err)
		}
	}
	if s.notifier != nil {
		s.notifier.NPAMarked(ctx, loan, rec)
	}
	return rec, nil
}

// Schedule builds the month-by-month amortization table for proposed terms.
func (s *Service) Schedule(amount, annualRate float64, tenureMonths int) (float64, []finance.Installment, error) {
	if amount <= 0 || tenureMonths <= 0 || annualRate < 0 {
		return 0, nil, fmt.Errorf("amount and tenure must be positive, rate non-negative")
	}
	return finance.EMI(amount, annualRate, tenureMonths), finance.AmortizationSchedule(amount, annualRate, tenureMonths), nil
}
