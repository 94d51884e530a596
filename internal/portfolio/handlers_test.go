package portfolio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTestRouter(source Source) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(NewService(source)).RegisterRoutes(router.Group("/v1"))
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSummaryHandler(t *testing.T) {
	router := setupHandlerTestRouter(populatedSource())

	w := get(router, "/v1/portfolio/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var resp Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 50, resp.LoanStatistics.TotalLoans)
	assert.Equal(t, 12.0, resp.RiskMetrics.NPARatio)
	assert.Equal(t, 62.5, resp.RiskMetrics.ApprovalRate)
}

func TestAnalyticsHandlers(t *testing.T) {
	router := setupHandlerTestRouter(populatedSource())

	for _, path := range []string{
		"/v1/portfolio/npa-analysis",
		"/v1/portfolio/repayment-stats",
		"/v1/portfolio/collateral-analysis",
		"/v1/portfolio/loan-distribution",
	} {
		w := get(router, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestHandlerSourceError(t *testing.T) {
	router := setupHandlerTestRouter(&stubSource{err: assert.AnError})

	w := get(router, "/v1/portfolio/summary")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp["error"])
}
