package customers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed customer store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Register inserts the customer and employment records in one transaction.
// Unique-constraint violations on email, PAN, or Aadhaar map to the
// package's duplicate sentinels.
func (p *PostgresStore) Register(ctx context.Context, customer *Customer, employment *Employment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (
			id, full_name, date_of_birth, gender, email, phone,
			address, city, state, pincode, pan_number, aadhaar_number,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		customer.ID, customer.FullName, customer.DateOfBirth, customer.Gender,
		customer.Email, customer.Phone, customer.Address, customer.City,
		customer.State, customer.Pincode, customer.PANNumber, customer.AadhaarNumber,
		customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO employments (
			id, customer_id, employer_name, job_title, employment_type,
			monthly_income, years_of_experience, employer_phone,
			employment_start_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		employment.ID, employment.CustomerID, employment.EmployerName,
		employment.JobTitle, employment.EmploymentType, employment.MonthlyIncome,
		employment.YearsOfExperience, employment.EmployerPhone,
		employment.StartDate, employment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert employment: %w", err)
	}

	return tx.Commit()
}

// Get retrieves a customer by ID.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Customer, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, full_name, date_of_birth, gender, email, phone,
			address, city, state, pincode, pan_number, aadhaar_number,
			created_at, updated_at
		FROM customers WHERE id = $1
	`, id)

	customer, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

// GetEmployment retrieves the employment record for a customer.
func (p *PostgresStore) GetEmployment(ctx context.Context, customerID string) (*Employment, error) {
	var e Employment
	err := p.db.QueryRowContext(ctx, `
		SELECT id, customer_id, employer_name, job_title, employment_type,
			monthly_income, years_of_experience, employer_phone,
			employment_start_date, created_at
		FROM employments WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, customerID).Scan(
		&e.ID, &e.CustomerID, &e.EmployerName, &e.JobTitle, &e.EmploymentType,
		&e.MonthlyIncome, &e.YearsOfExperience, &e.EmployerPhone,
		&e.StartDate, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEmploymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employment: %w", err)
	}
	return &e, nil
}

// List returns a page of customers in registration order plus the total count.
func (p *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Customer, int, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, full_name, date_of_birth, gender, email, phone,
			address, city, state, pincode, pan_number, aadhaar_number,
			created_at, updated_at
		FROM customers
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	return result, total, nil
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row scannable) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.FullName, &c.DateOfBirth, &c.Gender, &c.Email, &c.Phone,
		&c.Address, &c.City, &c.State, &c.Pincode, &c.PANNumber, &c.AadhaarNumber,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// duplicateError maps a Postgres unique violation to the matching sentinel,
// keyed on the constraint name.
func duplicateError(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return ErrDuplicateEmail
	case strings.Contains(pqErr.Constraint, "pan"):
		return ErrDuplicatePAN
	case strings.Contains(pqErr.Constraint, "aadhaar"):
		return ErrDuplicateAadhaar
	default:
		return nil
	}
}
