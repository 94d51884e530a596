package customers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmehra7/loanbook/internal/validation"
)

// RegisterRequest carries the registration form: customer identity plus the
// employment details the risk model depends on.
type RegisterRequest struct {
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        string `json:"gender"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	PANNumber     string `json:"pan_number"`
	AadhaarNumber string `json:"aadhaar_number"`

	EmployerName      string  `json:"employer_name"`
	JobTitle          string  `json:"job_title"`
	EmploymentType    string  `json:"employment_type"`
	MonthlyIncome     float64 `json:"monthly_income"`
	YearsOfExperience float64 `json:"years_of_experience"`
	EmployerPhone     string  `json:"employer_phone"`
	StartDate         string  `json:"employment_start_date"`
}

// Validate checks the registration form field by field.
func (r RegisterRequest) Validate() validation.ValidationErrors {
	errs := validation.Validate(
		validation.Required("full_name", r.FullName),
		validation.Required("date_of_birth", r.DateOfBirth),
		validation.Required("gender", r.Gender),
		validation.Required("email", r.Email),
		validation.Required("phone", r.Phone),
		validation.Required("address", r.Address),
		validation.Required("city", r.City),
		validation.Required("state", r.State),
		validation.Required("pincode", r.Pincode),
		validation.Required("pan_number", r.PANNumber),
		validation.Required("aadhaar_number", r.AadhaarNumber),
		validation.Required("employer_name", r.EmployerName),
		validation.Required("job_title", r.JobTitle),
		validation.Required("employment_type", r.EmploymentType),
		validation.Required("employment_start_date", r.StartDate),
		validation.Email("email", r.Email),
		validation.Phone("phone", r.Phone),
		validation.Pincode("pincode", r.Pincode),
		validation.PAN("pan_number", r.PANNumber),
		validation.Aadhaar("aadhaar_number", r.AadhaarNumber),
		validation.Date("date_of_birth", r.DateOfBirth),
		validation.Date("employment_start_date", r.StartDate),
	)
	if r.MonthlyIncome <= 0 {
		errs = append(errs, validation.ValidationError{
			Field: "monthly_income", Message: "must be positive",
		})
	}
	if r.YearsOfExperience < 0 {
		errs = append(errs, validation.ValidationError{
			Field: "years_of_experience", Message: "cannot be negative",
		})
	}
	return errs
}

// Service provides customer business logic.
type Service struct {
	store Store
}

// NewService creates a new customer service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register validates the form and creates the customer and employment
// records in one transaction.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Customer, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, errs
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("parse date_of_birth: %w", err)
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse employment_start_date: %w", err)
	}

	now := time.Now()
	customer := &Customer{
		ID:            uuid.NewString(),
		FullName:      validation.SanitizeString(req.FullName, 200),
		DateOfBirth:   dob,
		Gender:        req.Gender,
		Email:         validation.SanitizeString(req.Email, 200),
		Phone:         req.Phone,
		Address:       validation.SanitizeString(req.Address, 500),
		City:          validation.SanitizeString(req.City, 100),
		State:         validation.SanitizeString(req.State, 100),
		Pincode:       req.Pincode,
		PANNumber:     req.PANNumber,
		AadhaarNumber: req.AadhaarNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	employment := &Employment{
		ID:                uuid.NewString(),
		CustomerID:        customer.ID,
		EmployerName:      validation.SanitizeString(req.EmployerName, 200),
		JobTitle:          validation.SanitizeString(req.JobTitle, 200),
		EmploymentType:    req.EmploymentType,
		MonthlyIncome:     req.MonthlyIncome,
		YearsOfExperience: req.YearsOfExperience,
		EmployerPhone:     req.EmployerPhone,
		StartDate:         start,
		CreatedAt:         now,
	}

	if err := s.store.Register(ctx, customer, employment); err != nil {
		return nil, err
	}
	return customer, nil
}

// Get returns a customer by ID.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.store.Get(ctx, id)
}

// GetEmployment returns a customer's employment record.
func (s *Service) GetEmployment(ctx context.Context, customerID string) (*Employment, error) {
	return s.store.GetEmployment(ctx, customerID)
}

// List returns a page of customers plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Customer, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}
