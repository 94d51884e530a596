package realtime

import (
	"context"
	"time"

	"github.com/pmehra7/loanbook/internal/loans"
	"github.com/pmehra7/loanbook/internal/scoring"
)

// Notifier pushes loan lifecycle events onto the hub. It satisfies
// loans.Notifier so the loan service stays unaware of WebSockets.
type Notifier struct {
	hub *Hub
}

var _ loans.Notifier = (*Notifier)(nil)

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// ApplicationDecided broadcasts a scored application to subscribed clients.
func (n *Notifier) ApplicationDecided(_ context.Context, app *loans.Application, pred *scoring.Prediction) {
	n.hub.Broadcast(&Event{
		Type:      EventApplicationDecided,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"application_id": app.ID,
			"customer_id":    app.CustomerID,
			"customer_name":  app.CustomerName,
			"loan_amount":    app.Amount,
			"loan_purpose":   app.Purpose,
			"status":         app.Status,
			"credit_score":   pred.CreditScore,
			"risk_level":     pred.RiskLevel,
		},
	})
	if app.Status == loans.StatusApproved {
		n.hub.Broadcast(&Event{
			Type:      EventLoanDisbursed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"application_id": app.ID,
				"customer_id":    app.CustomerID,
				"loan_amount":    app.Amount,
				"status":         app.Status,
			},
		})
	}
}

// RepaymentRecorded broadcasts a repayment against a loan.
func (n *Notifier) RepaymentRecorded(_ context.Context, loan *loans.Loan, repayment *loans.Repayment) {
	n.hub.Broadcast(&Event{
		Type:      EventRepaymentRecorded,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"loan_id":             loan.ID,
			"customer_id":         loan.CustomerID,
			"amount_paid":         repayment.AmountPaid,
			"outstanding_balance": loan.OutstandingBalance,
			"status":              loan.Status,
		},
	})
}

// NPAMarked broadcasts an NPA classification.
func (n *Notifier) NPAMarked(_ context.Context, loan *loans.Loan, rec *loans.NPARecord) {
	n.hub.Broadcast(&Event{
		Type:      EventNPAMarked,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"loan_id":        loan.ID,
			"customer_id":    loan.CustomerID,
			"classification": rec.Classification,
			"overdue_amount": rec.OverdueAmount,
			"status":         loan.Status,
		},
	})
}
