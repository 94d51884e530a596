package loans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	handler := NewHandler(f.service)

	router := gin.New()
	v1 := router.Group("/v1")
	handler.RegisterRoutes(v1)
	admin := router.Group("/v1/admin")
	handler.RegisterAdminRoutes(admin)
	return router, f
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func applyBody(f *fixture) map[string]any {
	return map[string]any{
		"customer_id":        f.customerID,
		"loan_amount":        1000000,
		"loan_tenure_months": 60,
		"interest_rate":      9.5,
		"loan_purpose":       "Home Purchase",
	}
}

func TestSubmitApplicationHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)
	f.classifier.prob = 0.1

	w := doJSON(router, http.MethodPost, "/v1/loans/apply", applyBody(f))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusApproved, resp["status"])
	assert.InDelta(t, 795.0, resp["credit_score"].(float64), 1e-9)
	assert.NotEmpty(t, resp["application_id"])
	assert.NotEmpty(t, resp["loan_id"])
	assert.NotNil(t, resp["contributors"])
	assert.NotNil(t, resp["factors"])
	assert.Greater(t, resp["emi_amount"].(float64), 0.0)
}

func TestSubmitApplicationRejectedOmitsLoan(t *testing.T) {
	router, f := setupHandlerTestRouter(t)
	f.classifier.prob = 0.7

	w := doJSON(router, http.MethodPost, "/v1/loans/apply", applyBody(f))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusRejected, resp["status"])
	_, hasLoan := resp["loan_id"]
	assert.False(t, hasLoan)
}

func TestSubmitApplicationErrors(t *testing.T) {
	router, f := setupHandlerTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/loans/apply", map[string]any{"loan_amount": 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := applyBody(f)
	body["customer_id"] = "11111111-2222-3333-4444-555555555555"
	w = doJSON(router, http.MethodPost, "/v1/loans/apply", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body = applyBody(f)
	body["loan_purpose"] = "Yacht"
	w = doJSON(router, http.MethodPost, "/v1/loans/apply", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListApplicationsHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)
	ctx := context.Background()

	for _, prob := range []float64{0.1, 0.6} {
		f.classifier.prob = prob
		_, err := f.service.Submit(ctx, f.request())
		require.NoError(t, err)
	}

	w := doJSON(router, http.MethodGet, "/v1/loans/applications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Applications []Application `json:"applications"`
		Total        int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Applications, 2)

	w = doJSON(router, http.MethodGet, "/v1/loans/applications?status=Rejected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestGetApplicationHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)

	result, err := f.service.Submit(context.Background(), f.request())
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/v1/loans/applications/"+result.Application.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/loans/applications/11111111-2222-3333-4444-555555555555", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/loans/applications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListLoansHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)

	_, err := f.service.Submit(context.Background(), f.request())
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/v1/loans?status=Active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Loans []Loan `json:"loans"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, LoanActive, resp.Loans[0].Status)
}

func TestEMIScheduleHandler(t *testing.T) {
	router, _ := setupHandlerTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/loans/emi-schedule?amount=1000000&tenure_months=60&interest_rate=9.5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		EMIAmount float64          `json:"emi_amount"`
		Schedule  []map[string]any `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.EMIAmount, 0.0)
	assert.Len(t, resp.Schedule, 60)

	w = doJSON(router, http.MethodGet, "/v1/loans/emi-schedule?amount=1000000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/loans/emi-schedule?amount=-5&tenure_months=12&interest_rate=10", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordRepaymentHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)

	result, err := f.service.Submit(context.Background(), f.request())
	require.NoError(t, err)

	path := fmt.Sprintf("/v1/loans/%s/repayments", result.Loan.ID)
	w := doJSON(router, http.MethodPost, path, map[string]any{
		"amount_paid":  50000,
		"emi_due_date": "2026-07-05",
		"payment_date": "2026-07-03",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Loan Loan `json:"loan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 950000.0, resp.Loan.OutstandingBalance)

	w = doJSON(router, http.MethodPost, path, map[string]any{"amount_paid": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/loans/11111111-2222-3333-4444-555555555555/repayments", map[string]any{
		"amount_paid":  100,
		"emi_due_date": "2026-07-05",
		"payment_date": "2026-07-03",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPledgeCollateralHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)

	result, err := f.service.Submit(context.Background(), f.request())
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/v1/loans/%s/collateral", result.Loan.ID), map[string]any{
		"collateral_type":  "Property",
		"collateral_value": 2000000,
		"description":      "Apartment in Pune",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/v1/loans/%s/collateral", result.Loan.ID), map[string]any{
		"description": "missing fields",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkNPAHandler(t *testing.T) {
	router, f := setupHandlerTestRouter(t)

	result, err := f.service.Submit(context.Background(), f.request())
	require.NoError(t, err)
	path := fmt.Sprintf("/v1/admin/loans/%s/npa", result.Loan.ID)

	w := doJSON(router, http.MethodPost, path, map[string]any{
		"days_overdue":   30,
		"overdue_amount": 50000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, path, map[string]any{
		"days_overdue":   200,
		"overdue_amount": 50000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Record NPARecord `json:"npa_record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, NPADoubtful, resp.Record.Classification)
}
