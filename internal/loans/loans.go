// Package loans manages loan applications, disbursed loans, repayments,
// collateral, and NPA tracking.
package loans

import (
	"context"
	"errors"
	"time"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanClosed          = errors.New("loan is not active")
)

// Application lifecycle statuses, assigned from the predicted risk tier at
// submission time.
const (
	StatusApproved = "Approved"
	StatusPending  = "Pending"
	StatusRejected = "Rejected"
)

// Loan lifecycle statuses.
const (
	LoanActive    = "Active"
	LoanClosed    = "Closed"
	LoanDefaulted = "Defaulted"
)

// NPA classifications by days overdue, following RBI buckets.
const (
	NPASubStandard = "Sub-Standard" // 90-180 days
	NPADoubtful    = "Doubtful"     // 180-365 days
	NPALoss        = "Loss"         // over 365 days
)

// Application is a scored loan application.
type Application struct {
	ID              string    `json:"application_id"`
	CustomerID      string    `json:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	Amount          float64   `json:"loan_amount"`
	Purpose         string    `json:"loan_purpose"`
	TenureMonths    int       `json:"tenure_months"`
	InterestRate    float64   `json:"interest_rate"`
	Status          string    `json:"status"`
	CreditScore     float64   `json:"credit_score"`
	RiskProbability float64   `json:"risk_probability"`
	Remarks         string    `json:"remarks"`
	AppliedAt       time.Time `json:"application_date"`
}

// Loan is a disbursed loan created from an approved application.
type Loan struct {
	ID                 string    `json:"loan_id"`
	ApplicationID      string    `json:"application_id"`
	CustomerID         string    `json:"customer_id"`
	CustomerName       string    `json:"customer_name"`
	Amount             float64   `json:"loan_amount"`
	DisbursedAmount    float64   `json:"disbursed_amount"`
	OutstandingBalance float64   `json:"outstanding_balance"`
	InterestRate       float64   `json:"interest_rate"`
	TenureMonths       int       `json:"tenure_months"`
	EMI                float64   `json:"emi_amount"`
	Status             string    `json:"status"`
	DisbursedAt        time.Time `json:"disbursed_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Repayment is one EMI payment against a loan.
type Repayment struct {
	ID          string    `json:"repayment_id"`
	LoanID      string    `json:"loan_id"`
	EMIDueDate  time.Time `json:"emi_due_date"`
	PaymentDate time.Time `json:"payment_date"`
	AmountPaid  float64   `json:"amount_paid"`
	LateFee     float64   `json:"late_fee"`
	CreatedAt   time.Time `json:"created_at"`
}

// Late reports whether the payment landed after its due date.
func (r Repayment) Late() bool {
	return r.PaymentDate.After(r.EMIDueDate)
}

// Collateral is an asset pledged against a loan.
type Collateral struct {
	ID          string    `json:"collateral_id"`
	LoanID      string    `json:"loan_id"`
	Type        string    `json:"collateral_type"`
	Value       float64   `json:"collateral_value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NPARecord marks a loan as a non-performing asset.
type NPARecord struct {
	ID             string    `json:"npa_id"`
	LoanID         string    `json:"loan_id"`
	Classification string    `json:"npa_classification"`
	OverdueAmount  float64   `json:"overdue_amount"`
	DaysOverdue    int       `json:"days_overdue"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// ClassifyNPA buckets days overdue into an NPA classification. Anything
// under 90 days is not yet an NPA and returns the empty string.
func ClassifyNPA(daysOverdue int) string {
	switch {
	case daysOverdue < 90:
		return ""
	case daysOverdue < 180:
		return NPASubStandard
	case daysOverdue < 365:
		return NPADoubtful
	default:
		return NPALoss
	}
}

// ApplicationFilter narrows an application listing.
type ApplicationFilter struct {
	Status     string
	CustomerID string
	Limit      int
	Offset     int
}

// Aggregate snapshots consumed by the portfolio analytics endpoints.

// LoanStats counts loans by lifecycle status and sums the money columns.
type LoanStats struct {
	TotalLoans       int     `json:"total_loans"`
	ActiveLoans      int     `json:"active_loans"`
	ClosedLoans      int     `json:"closed_loans"`
	DefaultedLoans   int     `json:"defaulted_loans"`
	TotalDisbursed   float64 `json:"total_disbursed"`
	TotalOutstanding float64 `json:"total_outstanding"`
	AverageLoanSize  float64 `json:"average_loan_size"`
}

// ApplicationStats counts applications by status.
type ApplicationStats struct {
	Total    int `json:"total_applications"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// NPABucket is one classification's count and overdue amount.
type NPABucket struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// NPABreakdown groups NPA records by classification.
type NPABreakdown struct {
	TotalLoans  int                  `json:"total_npa_loans"`
	TotalAmount float64              `json:"total_npa_amount"`
	ByClass     map[string]NPABucket `json:"by_classification"`
}

// RepaymentStats summarizes repayment performance.
type RepaymentStats struct {
	Total         int     `json:"total_repayments"`
	Late          int     `json:"late_payments"`
	TotalLateFees float64 `json:"total_late_fees"`
	AverageAmount float64 `json:"average_repayment_amount"`
}

// CollateralBucket is one collateral type's count and value.
type CollateralBucket struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

// CollateralStats summarizes pledged collateral. Pairs carries the
// (loan amount, collateral value) pairs LTV averages are computed from.
type CollateralStats struct {
	TotalValue float64                     `json:"total_collateral_value"`
	ByType     map[string]CollateralBucket `json:"by_type"`
	Pairs      []CollateralPair            `json:"-"`
}

// CollateralPair joins a loan's amount with its pledged collateral value.
type CollateralPair struct {
	LoanAmount      float64
	CollateralValue float64
}

// PurposeBucket is one loan purpose's application count and amount.
type PurposeBucket struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// Distribution groups applications by purpose and loans by status.
type Distribution struct {
	ByPurpose map[string]PurposeBucket `json:"by_purpose"`
	ByStatus  map[string]int           `json:"by_status"`
}

// Store persists applications, loans, and their satellite records.
type Store interface {
	CreateApplication(ctx context.Context, app *Application) error
	GetApplication(ctx context.Context, id string) (*Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, int, error)

	CreateLoan(ctx context.Context, loan *Loan) error
	GetLoan(ctx context.Context, id string) (*Loan, error)
	UpdateLoan(ctx context.Context, loan *Loan) error
	ListLoans(ctx context.Context, status string, limit int) ([]*Loan, error)

	RecordRepayment(ctx context.Context, r *Repayment) error
	AddCollateral(ctx context.Context, c *Collateral) error
	TrackNPA(ctx context.Context, rec *NPARecord) error

	LoanStats(ctx context.Context) (LoanStats, error)
	ApplicationStats(ctx context.Context) (ApplicationStats, error)
	NPAStats(ctx context.Context) (NPABreakdown, error)
	RepaymentStats(ctx context.Context) (RepaymentStats, error)
	CollateralStats(ctx context.Context) (CollateralStats, error)
	Distribution(ctx context.Context) (Distribution, error)
}
