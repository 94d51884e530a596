package loans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmehra7/loanbook/internal/customers"
	"github.com/pmehra7/loanbook/internal/testutil"
)

// seedPGCustomer inserts a customer row so application/loan foreign keys hold.
func seedPGCustomer(t *testing.T, store *customers.PostgresStore) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	customer := &customers.Customer{
		ID:            id,
		FullName:      "Rohit Verma",
		DateOfBirth:   time.Date(1985, 11, 2, 0, 0, 0, 0, time.UTC),
		Gender:        "Male",
		Email:         uuid.NewString() + "@email.com",
		Phone:         "9898989898",
		Address:       "7 Station Road",
		City:          "Pune",
		State:         "Maharashtra",
		Pincode:       "411001",
		PANNumber:     "LMNOP" + id[:4] + "K",
		AadhaarNumber: id[:12],
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	employment := &customers.Employment{
		ID:             uuid.NewString(),
		CustomerID:     id,
		EmployerName:   "Wipro",
		JobTitle:       "Consultant",
		EmploymentType: "Salaried",
		MonthlyIncome:  90000,
		StartDate:      time.Date(2015, 4, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:      now,
	}
	require.NoError(t, store.Register(context.Background(), customer, employment))
	return id
}

func newPGApplication(customerID, status string) *Application {
	return &Application{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		CustomerName:    "Rohit Verma",
		Amount:          500000,
		Purpose:         "Car Purchase",
		TenureMonths:    48,
		InterestRate:    11.5,
		Status:          status,
		CreditScore:     720.5,
		RiskProbability: 0.2355,
		Remarks:         "Approve",
		AppliedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func newPGLoan(app *Application) *Loan {
	now := time.Now().UTC().Truncate(time.Second)
	return &Loan{
		ID:                 uuid.NewString(),
		ApplicationID:      app.ID,
		CustomerID:         app.CustomerID,
		CustomerName:       app.CustomerName,
		Amount:             app.Amount,
		DisbursedAmount:    app.Amount,
		OutstandingBalance: app.Amount,
		InterestRate:       app.InterestRate,
		TenureMonths:       app.TenureMonths,
		EMI:                13040.55,
		Status:             LoanActive,
		DisbursedAt:        now,
		UpdatedAt:          now,
	}
}

func TestPostgresApplicationLifecycle(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	customerID := seedPGCustomer(t, customers.NewPostgresStore(db))

	app := newPGApplication(customerID, StatusApproved)
	require.NoError(t, store.CreateApplication(ctx, app))

	got, err := store.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.CustomerName, got.CustomerName)
	assert.Equal(t, app.CreditScore, got.CreditScore)
	assert.Equal(t, app.RiskProbability, got.RiskProbability)

	_, err = store.GetApplication(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, ErrApplicationNotFound))

	pending := newPGApplication(customerID, StatusPending)
	require.NoError(t, store.CreateApplication(ctx, pending))

	list, total, err := store.ListApplications(ctx, ApplicationFilter{Status: StatusApproved, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, app.ID, list[0].ID)

	_, total, err = store.ListApplications(ctx, ApplicationFilter{CustomerID: customerID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	stats, err := store.ApplicationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Pending)
}

func TestPostgresLoanLifecycle(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	customerID := seedPGCustomer(t, customers.NewPostgresStore(db))

	app := newPGApplication(customerID, StatusApproved)
	require.NoError(t, store.CreateApplication(ctx, app))
	loan := newPGLoan(app)
	require.NoError(t, store.CreateLoan(ctx, loan))

	got, err := store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.OutstandingBalance, got.OutstandingBalance)

	got.OutstandingBalance = 400000
	got.Status = LoanActive
	require.NoError(t, store.UpdateLoan(ctx, got))
	got, err = store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 400000.0, got.OutstandingBalance)

	active, err := store.ListLoans(ctx, LoanActive, 10)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = store.GetLoan(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, ErrLoanNotFound))

	stats, err := store.LoanStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalLoans)
	assert.Equal(t, 500000.0, stats.TotalDisbursed)
	assert.Equal(t, 400000.0, stats.TotalOutstanding)
}

func TestPostgresSatelliteRecordsAndStats(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	customerID := seedPGCustomer(t, customers.NewPostgresStore(db))

	app := newPGApplication(customerID, StatusApproved)
	require.NoError(t, store.CreateApplication(ctx, app))
	loan := newPGLoan(app)
	require.NoError(t, store.CreateLoan(ctx, loan))

	due := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordRepayment(ctx, &Repayment{
		ID: uuid.NewString(), LoanID: loan.ID,
		EMIDueDate: due, PaymentDate: due.AddDate(0, 0, 3),
		AmountPaid: 13040.55, LateFee: 250,
		CreatedAt: time.Now().UTC(),
	}))

	repStats, err := store.RepaymentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repStats.Total)
	assert.Equal(t, 1, repStats.Late)
	assert.Equal(t, 250.0, repStats.TotalLateFees)

	require.NoError(t, store.AddCollateral(ctx, &Collateral{
		ID: uuid.NewString(), LoanID: loan.ID,
		Type: "Property", Value: 900000,
		Description: "Flat", CreatedAt: time.Now().UTC(),
	}))

	colStats, err := store.CollateralStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 900000.0, colStats.TotalValue)
	assert.Equal(t, 1, colStats.ByType["Property"].Count)
	require.Len(t, colStats.Pairs, 1)
	assert.Equal(t, 500000.0, colStats.Pairs[0].LoanAmount)

	require.NoError(t, store.TrackNPA(ctx, &NPARecord{
		ID: uuid.NewString(), LoanID: loan.ID,
		Classification: NPASubStandard, OverdueAmount: 40000,
		DaysOverdue: 120, RecordedAt: time.Now().UTC(),
	}))

	npa, err := store.NPAStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, npa.TotalLoans)
	assert.Equal(t, 40000.0, npa.TotalAmount)
	assert.Equal(t, 1, npa.ByClass[NPASubStandard].Count)

	dist, err := store.Distribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dist.ByPurpose["Car Purchase"].Count)
	assert.Equal(t, 1, dist.ByStatus[LoanActive])
}
