package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/pmehra7/loanbook/internal/idgen"
	"github.com/pmehra7/loanbook/internal/loans"
	"github.com/pmehra7/loanbook/internal/scoring"
)

// Emitter wraps a Dispatcher to emit loan lifecycle events. All methods are
// fire-and-forget: errors are logged but never returned, so webhook trouble
// can never fail a loan operation. A nil Emitter is safe to call.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

var _ loans.Notifier = (*Emitter)(nil)

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(eventType EventType, data map[string]interface{}) {
	if e == nil || e.d == nil {
		return
	}
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	// The dispatcher bounds each delivery with its own timeout.
	if err := e.d.Dispatch(context.Background(), event); err != nil {
		e.logger.Warn("webhook emit failed", "event", eventType, "error", err)
	}
}

// ApplicationDecided emits application.decided, plus loan.disbursed when the
// decision auto-approved the loan.
func (e *Emitter) ApplicationDecided(_ context.Context, app *loans.Application, pred *scoring.Prediction) {
	e.emit(EventApplicationDecided, map[string]interface{}{
		"applicationId":   app.ID,
		"customerId":      app.CustomerID,
		"loanAmount":      app.Amount,
		"loanPurpose":     app.Purpose,
		"status":          app.Status,
		"creditScore":     pred.CreditScore,
		"riskLevel":       pred.RiskLevel,
		"riskProbability": pred.RiskProbability,
	})
	if app.Status == loans.StatusApproved {
		e.emit(EventLoanDisbursed, map[string]interface{}{
			"applicationId": app.ID,
			"customerId":    app.CustomerID,
			"loanAmount":    app.Amount,
		})
	}
}

// RepaymentRecorded emits a loan.repayment.recorded event.
func (e *Emitter) RepaymentRecorded(_ context.Context, loan *loans.Loan, repayment *loans.Repayment) {
	e.emit(EventRepaymentRecorded, map[string]interface{}{
		"loanId":             loan.ID,
		"customerId":         loan.CustomerID,
		"amountPaid":         repayment.AmountPaid,
		"lateFee":            repayment.LateFee,
		"outstandingBalance": loan.OutstandingBalance,
		"loanStatus":         loan.Status,
	})
}

// NPAMarked emits a loan.npa.marked event.
func (e *Emitter) NPAMarked(_ context.Context, loan *loans.Loan, rec *loans.NPARecord) {
	e.emit(EventNPAMarked, map[string]interface{}{
		"loanId":         loan.ID,
		"customerId":     loan.CustomerID,
		"classification": rec.Classification,
		"overdueAmount":  rec.OverdueAmount,
		"daysOverdue":    rec.DaysOverdue,
	})
}
