package customers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pmehra7/loanbook/internal/logging"
	"github.com/pmehra7/loanbook/internal/validation"
)

// Handler provides HTTP endpoints for customer operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new customer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up customer routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/customers/register", h.Register)
	r.GET("/customers", h.ListCustomers)
	r.GET("/customers/:id", validation.IDParamMiddleware(), h.GetCustomer)
}

// Register handles POST /v1/customers/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body must be valid JSON",
		})
		return
	}

	customer, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verrs.Error(),
				"fields":  verrs,
			})
			return
		}
		switch {
		case errors.Is(err, ErrDuplicateEmail),
			errors.Is(err, ErrDuplicatePAN),
			errors.Is(err, ErrDuplicateAadhaar):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_exists",
				"message": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	logging.L(c.Request.Context()).Info("customer registered",
		"customer_id", customer.ID, "state", customer.State)
	c.JSON(http.StatusCreated, gin.H{
		"message":       "customer registered successfully",
		"customer_id":   customer.ID,
		"customer_name": customer.FullName,
		"email":         customer.Email,
	})
}

// ListCustomers handles GET /v1/customers
func (h *Handler) ListCustomers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, total, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	type summary struct {
		ID        string `json:"customer_id"`
		FullName  string `json:"full_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		City      string `json:"city"`
		State     string `json:"state"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]summary, 0, len(list))
	for _, cust := range list {
		out = append(out, summary{
			ID:        cust.ID,
			FullName:  cust.FullName,
			Email:     cust.Email,
			Phone:     cust.Phone,
			City:      cust.City,
			State:     cust.State,
			CreatedAt: cust.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": out,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetCustomer handles GET /v1/customers/:id
func (h *Handler) GetCustomer(c *gin.Context) {
	id := c.Param("id")

	customer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "customer not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	resp := gin.H{"customer": customer}
	if employment, err := h.service.GetEmployment(c.Request.Context(), id); err == nil {
		resp["employment"] = employment
	}
	c.JSON(http.StatusOK, resp)
}
