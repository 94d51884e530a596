package loans

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pmehra7/loanbook/internal/customers"
	"github.com/pmehra7/loanbook/internal/features"
	"github.com/pmehra7/loanbook/internal/model"
	"github.com/pmehra7/loanbook/internal/scoring"
	"github.com/pmehra7/loanbook/internal/validation"
)

// Handler provides HTTP endpoints for loan operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new loan handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up loan routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/loans/apply", h.SubmitApplication)
	r.GET("/loans/applications", h.ListApplications)
	r.GET("/loans/applications/:id", validation.IDParamMiddleware(), h.GetApplication)
	r.GET("/loans", h.ListLoans)
	r.GET("/loans/emi-schedule", h.EMISchedule)
	r.POST("/loans/:id/repayments", validation.IDParamMiddleware(), h.RecordRepayment)
	r.POST("/loans/:id/collateral", validation.IDParamMiddleware(), h.PledgeCollateral)
}

// RegisterAdminRoutes sets up admin-only loan routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/loans/:id/npa", validation.IDParamMiddleware(), h.MarkNPA)
}

// SubmitApplication handles POST /v1/loans/apply
func (h *Handler) SubmitApplication(c *gin.Context) {
	var req scoring.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "customer_id, loan_amount, loan_tenure_months, interest_rate and loan_purpose are required",
		})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		status, code := submitErrorStatus(err)
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	resp := gin.H{
		"message":          "loan application submitted successfully",
		"application_id":   result.Application.ID,
		"status":           result.Application.Status,
		"credit_score":     result.Prediction.CreditScore,
		"risk_probability": result.Prediction.RiskProbability,
		"recommendation":   result.Prediction.Recommendation,
		"contributors":     result.Prediction.Contributors,
		"factors":          result.Prediction.Factors,
	}
	if result.Loan != nil {
		resp["loan_id"] = result.Loan.ID
		resp["emi_amount"] = result.Loan.EMI
	}
	c.JSON(http.StatusCreated, resp)
}

// ListApplications handles GET /v1/loans/applications
func (h *Handler) ListApplications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := ApplicationFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customer_id"),
		Limit:      limit,
		Offset:     offset,
	}

	apps, total, err := h.service.ListApplications(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

// GetApplication handles GET /v1/loans/applications/:id
func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.service.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "application not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// ListLoans handles GET /v1/loans
func (h *Handler) ListLoans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.service.ListLoans(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": list,
		"count": len(list),
	})
}

// EMISchedule handles GET /v1/loans/emi-schedule
func (h *Handler) EMISchedule(c *gin.Context) {
	amount, err1 := strconv.ParseFloat(c.Query("amount"), 64)
	tenure, err2 := strconv.Atoi(c.Query("tenure_months"))
	rate, err3 := strconv.ParseFloat(c.Query("interest_rate"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "amount, tenure_months and interest_rate query parameters are required",
		})
		return
	}

	emi, schedule, err := h.service.Schedule(amount, rate, tenure)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"emi_amount":    emi,
		"amount":        amount,
		"tenure_months": tenure,
		"interest_rate": rate,
		"schedule":      schedule,
	})
}

// RecordRepayment handles POST /v1/loans/:id/repayments
func (h *Handler) RecordRepayment(c *gin.Context) {
	var body struct {
		AmountPaid  float64 `json:"amount_paid" binding:"required"`
		LateFee     float64 `json:"late_fee"`
		EMIDueDate  string  `json:"emi_due_date" binding:"required"`
		PaymentDate string  `json:"payment_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "amount_paid, emi_due_date and payment_date are required",
		})
		return
	}
	dueDate, err1 := time.Parse("2006-01-02", body.EMIDueDate)
	paymentDate, err2 := time.Parse("2006-01-02", body.PaymentDate)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "dates must be in YYYY-MM-DD format",
		})
		return
	}

	loan, err := h.service.Repay(c.Request.Context(), c.Param("id"), body.AmountPaid, body.LateFee, dueDate, paymentDate)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, ErrLoanNotFound):
			status, code = http.StatusNotFound, "not_found"
		case errors.Is(err, ErrLoanClosed):
			status, code = http.StatusUnprocessableEntity, "invalid_state"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "repayment recorded",
		"loan":    loan,
	})
}

// PledgeCollateral handles POST /v1/loans/:id/collateral
func (h *Handler) PledgeCollateral(c *gin.Context) {
	var body struct {
		Type        string  `json:"collateral_type" binding:"required"`
		Value       float64 `json:"collateral_value" binding:"required"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "collateral_type and collateral_value are required",
		})
		return
	}

	collateral, err := h.service.PledgeCollateral(c.Request.Context(), c.Param("id"), body.Type, body.Description, body.Value)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		if errors.Is(err, ErrLoanNotFound) {
			status, code = http.StatusNotFound, "not_found"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"collateral": collateral})
}

// MarkNPA handles POST /v1/admin/loans/:id/npa
func (h *Handler) MarkNPA(c *gin.Context) {
	var body struct {
		DaysOverdue   int     `json:"days_overdue" binding:"required"`
		OverdueAmount float64 `json:"overdue_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "days_overdue and overdue_amount are required",
		})
		return
	}

	rec, err := h.service.MarkNPA(c.Request.Context(), c.Param("id"), body.DaysOverdue, body.OverdueAmount)
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal_error"
		if errors.Is(err, ErrLoanNotFound) {
			status, code = http.StatusNotFound, "not_found"
		} else if ClassifyNPA(body.DaysOverdue) == "" {
			status, code = http.StatusBadRequest, "invalid_request"
		}
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"npa_record": rec})
}

// submitErrorStatus maps submission failures to HTTP responses.
func submitErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, customers.ErrCustomerNotFound),
		errors.Is(err, features.ErrCustomerNotFound),
		errors.Is(err, features.ErrEmploymentNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, features.ErrInvalidLoan),
		errors.Is(err, features.ErrUnknownPurpose):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, features.ErrZeroIncome):
		return http.StatusUnprocessableEntity, "invalid_state"
	case errors.Is(err, model.ErrArtifactUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
