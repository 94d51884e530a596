// Package validation provides input validation helpers and middleware for
// the Loanbook API.
package validation

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// panRegex matches the Indian PAN layout: five letters, four digits,
	// one letter.
	panRegex     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	phoneRegex   = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	pincodeRegex = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	aadhaarRegex = regexp.MustCompile(`^[0-9]{12}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidEmail checks basic email shape.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsValidPAN checks an Indian PAN number.
func IsValidPAN(s string) bool {
	return panRegex.MatchString(s)
}

// IsValidPhone checks a 10-digit Indian mobile number.
func IsValidPhone(s string) bool {
	return phoneRegex.MatchString(s)
}

// IsValidPincode checks a 6-digit Indian postal code.
func IsValidPincode(s string) bool {
	return pincodeRegex.MatchString(s)
}

// IsValidAadhaar checks a 12-digit Aadhaar number.
func IsValidAadhaar(s string) bool {
	return aadhaarRegex.MatchString(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// Email checks email shape on non-empty values.
func Email(field, value string) func() *ValidationError {
	return matcher(field, value, IsValidEmail, "must be a valid email address")
}

// PAN checks PAN shape on non-empty values.
func PAN(field, value string) func() *ValidationError {
	return matcher(field, value, IsValidPAN, "must match the PAN format (e.g. ABCDE1234F)")
}

// Phone checks mobile number shape on non-empty values.
func Phone(field, value string) func() *ValidationError {
	return matcher(field, value, IsValidPhone, "must be a 10-digit mobile number")
}

// Pincode checks postal code shape on non-empty values.
func Pincode(field, value string) func() *ValidationError {
	return matcher(field, value, IsValidPincode, "must be a 6-digit pincode")
}

// Aadhaar checks Aadhaar shape on non-empty values.
func Aadhaar(field, value string) func() *ValidationError {
	return matcher(field, value, IsValidAadhaar, "must be a 12-digit Aadhaar number")
}

// Date checks that a value parses as YYYY-MM-DD on non-empty values.
func Date(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return &ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
		}
		return nil
	}
}

func matcher(field, value string, ok func(string) bool, msg string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !ok(value) {
			return &ValidationError{Field: field, Message: msg}
		}
		return nil
	}
}

// IDParamMiddleware validates the :id URL parameter on routes that use it.
// Apply to route groups that include :id params to reject malformed IDs early.
func IDParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id != "" {
			if _, err := uuid.Parse(id); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error":   "invalid_id",
					"message": "id must be a valid UUID",
				})
				return
			}
		}
		c.Next()
	}
}
