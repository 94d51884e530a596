package loans

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed loan store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateApplication(ctx context.Context, app *Application) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, customer_id, customer_name, loan_amount, loan_purpose,
			loan_tenure_months, interest_rate, status, credit_score,
			risk_probability, remarks, applied_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		app.ID, app.CustomerID, app.CustomerName, app.Amount, app.Purpose,
		app.TenureMonths, app.InterestRate, app.Status, app.CreditScore,
		app.RiskProbability, app.Remarks, app.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetApplication(ctx context.Context, id string) (*Application, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, loan_amount, loan_purpose,
			loan_tenure_months, interest_rate, status, credit_score,
			risk_probability, remarks, applied_at
		FROM applications WHERE id = $1
	`, id)

	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func (p *PostgresStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}

	var total int
	if err := p.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, customer_id, customer_name, loan_amount, loan_purpose,
			loan_tenure_months, interest_rate, status, credit_score,
			risk_probability, remarks, applied_at
		FROM applications %s
		ORDER BY applied_at DESC LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, app)
	}
	return result, total, rows.Err()
}

func (p *PostgresStore) CreateLoan(ctx context.Context, loan *Loan) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO loans (
			id, application_id, customer_id, customer_name, loan_amount,
			disbursed_amount, outstanding_balance, interest_rate,
			loan_tenure_months, emi_amount, status, disbursed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		loan.ID, loan.ApplicationID, loan.CustomerID, loan.CustomerName,
		loan.Amount, loan.DisbursedAmount, loan.OutstandingBalance,
		loan.InterestRate, loan.TenureMonths, loan.EMI, loan.Status,
		loan.DisbursedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetLoan(ctx context.Context, id string) (*Loan, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, application_id, customer_id, customer_name, loan_amount,
			disbursed_amount, outstanding_balance, interest_rate,
			loan_tenure_months, emi_amount, status, disbursed_at, updated_at
		FROM loans WHERE id = $1
	`, id)

	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

func (p *PostgresStore) UpdateLoan(ctx context.Context, loan *Loan) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE loans SET
			outstanding_balance = $2,
			status              = $3,
			updated_at          = $4
		WHERE id = $1
	`, loan.ID, loan.OutstandingBalance, loan.Status, loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrLoanNotFound
	}
	return nil
}

func (p *PostgresStore) ListLoans(ctx context.Context, status string, limit int) ([]*Loan, error) {
	query := `
		SELECT id, application_id, customer_id, customer_name, loan_amount,
			disbursed_amount, outstanding_balance, interest_rate,
			loan_tenure_months, emi_amount, status, disbursed_at, updated_at
		FROM loans`
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY disbursed_at DESC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, loan)
	}
	return result, rows.Err()
}

func (p *PostgresStore) RecordRepayment(ctx context.Context, r *Repayment) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO repayments (
			id, loan_id, emi_due_date, payment_date, amount_paid, late_fee, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.LoanID, r.EMIDueDate, r.PaymentDate, r.AmountPaid, r.LateFee, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert repayment: %w", err)
	}
	return nil
}

func (p *PostgresStore) AddCollateral(ctx context.Context, c *Collateral) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO collateral (
			id, loan_id, collateral_type, collateral_value, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.LoanID, c.Type, c.Value, c.Description, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert collateral: %w", err)
	}
	return nil
}

func (p *PostgresStore) TrackNPA(ctx context.Context, rec *NPARecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO npa_tracking (
			id, loan_id, npa_classification, overdue_amount, days_overdue, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.LoanID, rec.Classification, rec.OverdueAmount, rec.DaysOverdue, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert npa record: %w", err)
	}
	return nil
}

func (p *PostgresStore) LoanStats(ctx context.Context) (LoanStats, error) {
	var stats LoanStats
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Active'),
			COUNT(*) FILTER (WHERE status = 'Closed'),
			COUNT(*) FILTER (WHERE status = 'Defaulted'),
			COALESCE(SUM(disbursed_amount), 0),
			COALESCE(SUM(outstanding_balance) FILTER (WHERE status = 'Active'), 0),
			COALESCE(AVG(loan_amount), 0)
		FROM loans
	`).Scan(
		&stats.TotalLoans, &stats.ActiveLoans, &stats.ClosedLoans,
		&stats.DefaultedLoans, &stats.TotalDisbursed, &stats.TotalOutstanding,
		&stats.AverageLoanSize,
	)
	if err != nil {
		return LoanStats{}, fmt.Errorf("loan stats: %w", err)
	}
	return stats, nil
}

func (p *PostgresStore) ApplicationStats(ctx context.Context) (ApplicationStats, error) {
	var stats ApplicationStats
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Approved'),
			COUNT(*) FILTER (WHERE status = 'Rejected'),
			COUNT(*) FILTER (WHERE status = 'Pending')
		FROM applications
	`).Scan(&stats.Total, &stats.Approved, &stats.Rejected, &stats.Pending)
	if err != nil {
		return ApplicationStats{}, fmt.Errorf("application stats: %w", err)
	}
	return stats, nil
}

func (p *PostgresStore) NPAStats(ctx context.Context) (NPABreakdown, error) {
	breakdown := NPABreakdown{ByClass: make(map[string]NPABucket)}

	rows, err := p.db.QueryContext(ctx, `
		SELECT npa_classification, COUNT(*), COALESCE(SUM(overdue_amount), 0)
		FROM npa_tracking GROUP BY npa_classification
	`)
	if err != nil {
		return NPABreakdown{}, fmt.Errorf("npa stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var class string
		var bucket NPABucket
		if err := rows.Scan(&class, &bucket.Count, &bucket.Amount); err != nil {
			return NPABreakdown{}, err
		}
		breakdown.ByClass[class] = bucket
		breakdown.TotalLoans += bucket.Count
		breakdown.TotalAmount += bucket.Amount
	}
	return breakdown, rows.Err()
}

func (p *PostgresStore) RepaymentStats(ctx context.Context) (RepaymentStats, error) {
	var stats RepaymentStats
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE payment_date > emi_due_date),
			COALESCE(SUM(late_fee), 0),
			COALESCE(AVG(amount_paid), 0)
		FROM repayments
	`).Scan(&stats.Total, &stats.Late, &stats.TotalLateFees, &stats.AverageAmount)
	if err != nil {
		return RepaymentStats{}, fmt.Errorf("repayment stats: %w", err)
	}
	return stats, nil
}

func (p *PostgresStore) CollateralStats(ctx context.Context) (CollateralStats, error) {
	stats := CollateralStats{ByType: make(map[string]CollateralBucket)}

	rows, err := p.db.QueryContext(ctx, `
		SELECT collateral_type, COUNT(*), COALESCE(SUM(collateral_value), 0)
		FROM collateral GROUP BY collateral_type
	`)
	if err != nil {
		return CollateralStats{}, fmt.Errorf("collateral stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var collType string
		var bucket CollateralBucket
		if err := rows.Scan(&collType, &bucket.Count, &bucket.TotalValue); err != nil {
			return CollateralStats{}, err
		}
		stats.ByType[collType] = bucket
		stats.TotalValue += bucket.TotalValue
	}
	if err := rows.Err(); err != nil {
		return CollateralStats{}, err
	}

	pairRows, err := p.db.QueryContext(ctx, `
		SELECT l.loan_amount, c.collateral_value
		FROM loans l JOIN collateral c ON c.loan_id = l.id
	`)
	if err != nil {
		return CollateralStats{}, fmt.Errorf("collateral pairs: %w", err)
	}
	defer func() { _ = pairRows.Close() }()
	for pairRows.Next() {
		var pair CollateralPair
		if err := pairRows.Scan(&pair.LoanAmount, &pair.CollateralValue); err != nil {
			return CollateralStats{}, err
		}
		stats.Pairs = append(stats.Pairs, pair)
	}
	return stats, pairRows.Err()
}

func (p *PostgresStore) Distribution(ctx context.Context) (Distribution, error) {
	dist := Distribution{
		ByPurpose: make(map[string]PurposeBucket),
		ByStatus:  make(map[string]int),
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT loan_purpose, COUNT(*), COALESCE(SUM(loan_amount), 0)
		FROM applications GROUP BY loan_purpose
	`)
	if err != nil {
		return Distribution{}, fmt.Errorf("purpose distribution: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var purpose string
		var bucket PurposeBucket
		if err := rows.Scan(&purpose, &bucket.Count, &bucket.TotalAmount); err != nil {
			return Distribution{}, err
		}
		dist.ByPurpose[purpose] = bucket
	}
	if err := rows.Err(); err != nil {
		return Distribution{}, err
	}

	statusRows, err := p.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM loans GROUP BY status
	`)
	if err != nil {
		return Distribution{}, fmt.Errorf("status distribution: %w", err)
	}
	defer func() { _ = statusRows.Close() }()
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return Distribution{}, err
		}
		dist.ByStatus[status] = count
	}
	return dist, statusRows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row scannable) (*Application, error) {
	var app Application
	err := row.Scan(
		&app.ID, &app.CustomerID, &app.CustomerName, &app.Amount, &app.Purpose,
		&app.TenureMonths, &app.InterestRate, &app.Status, &app.CreditScore,
		&app.RiskProbability, &app.Remarks, &app.AppliedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func scanLoan(row scannable) (*Loan, error) {
	var loan Loan
	err := row.Scan(
		&loan.ID, &loan.ApplicationID, &loan.CustomerID, &loan.CustomerName,
		&loan.Amount, &loan.DisbursedAmount, &loan.OutstandingBalance,
		&loan.InterestRate, &loan.TenureMonths, &loan.EMI, &loan.Status,
		&loan.DisbursedAt, &loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}
