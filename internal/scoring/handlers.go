package scoring

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pmehra7/loanbook/internal/features"
	"github.com/pmehra7/loanbook/internal/model"
)

// maxBatchSize caps one batch request.
const maxBatchSize = 500

// Handler provides HTTP endpoints for the scoring pipeline.
type Handler struct {
	service *Service
}

// NewHandler creates a new scoring handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public scoring routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/score", h.ScoreApplication)
}

// RegisterAdminRoutes sets up admin-only scoring routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/score/batch", h.ScoreBatch)
}

// ScoreApplication handles POST /v1/score
func (h *Handler) ScoreApplication(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "customer_id, loan_amount, loan_tenure_months, interest_rate and loan_purpose are required",
		})
		return
	}

	pred, err := h.service.Score(c.Request.Context(), req)
	if err != nil {
		status, code := scoreErrorStatus(err)
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pred)
}

// ScoreBatch handles POST /v1/score/batch
func (h *Handler) ScoreBatch(c *gin.Context) {
	var body struct {
		Applications []ScoreRequest `json:"applications" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "applications array is required",
		})
		return
	}
	if len(body.Applications) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "applications array is empty",
		})
		return
	}
	if len(body.Applications) > maxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":   "batch_too_large",
			"message": "batch exceeds the maximum of 500 applications",
		})
		return
	}

	results := h.service.ScoreBatch(c.Request.Context(), body.Applications)

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
		"failed":  failed,
	})
}

// scoreErrorStatus maps pipeline errors to HTTP responses.
func scoreErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, features.ErrCustomerNotFound),
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
