package portfolio

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the portfolio analytics endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the portfolio endpoints into the router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/portfolio/summary", h.Summary)
	r.GET("/portfolio/npa-analysis", h.NPAAnalysis)
	r.GET("/portfolio/repayment-stats", h.RepaymentStats)
	r.GET("/portfolio/collateral-analysis", h.CollateralAnalysis)
	r.GET("/portfolio/loan-distribution", h.LoanDistribution)
}

// Summary handles GET /v1/portfolio/summary
func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// NPAAnalysis handles GET /v1/portfolio/npa-analysis
func (h *Handler) NPAAnalysis(c *gin.Context) {
	analysis, err := h.service.NPAAnalysis(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// RepaymentStats handles GET /v1/portfolio/repayment-stats
func (h *Handler) RepaymentStats(c *gin.Context) {
	perf, err := h.service.RepaymentPerformance(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

// CollateralAnalysis handles GET /v1/portfolio/collateral-analysis
func (h *Handler) CollateralAnalysis(c *gin.Context) {
	analysis, err := h.service.CollateralAnalysis(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// LoanDistribution handles GET /v1/portfolio/loan-distribution
func (h *Handler) LoanDistribution(c *gin.Context) {
	dist, err := h.service.Distribution(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}
