// Package customers manages customer identity and employment records.
package customers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEmploymentNotFound = errors.New("employment record not found")
	ErrDuplicateEmail     = errors.New("customer with this email already exists")
	ErrDuplicatePAN       = errors.New("customer with this PAN already exists")
	ErrDuplicateAadhaar   = errors.New("customer with this Aadhaar already exists")
)

// Customer is one registered borrower.
type Customer struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	Gender        string    `json:"gender"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Pincode       string    `json:"pincode"`
	PANNumber     string    `json:"pan_number"`
	AadhaarNumber string    `json:"aadhaar_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Employment is a customer's current employment record.
type Employment struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	EmployerName      string    `json:"employer_name"`
	JobTitle          string    `json:"job_title"`
	EmploymentType    string    `json:"employment_type"`
	MonthlyIncome     float64   `json:"monthly_income"`
	YearsOfExperience float64   `json:"years_of_experience"`
	EmployerPhone     string    `json:"employer_phone,omitempty"`
	StartDate         time.Time `json:"employment_start_date"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store persists customers and their employment records. Register writes
// both records atomically: a failed employment insert must not leave an
// orphaned customer.
type Store interface {
	Register(ctx context.Context, customer *Customer, employment *Employment) error
	Get(ctx context.Context, id string) (*Customer, error)
	GetEmployment(ctx context.Context, customerID string) (*Employment, error)
	List(ctx context.Context, limit, offset int) ([]*Customer, int, error)
}
