package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmehra7/loanbook/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubClassifier always predicts the configured probability.
type stubClassifier struct {
	prob float64
}

func (s *stubClassifier) FeatureNames() []string {
	return []string{"loan_amount", "monthly_income", "loan_to_income_ratio"}
}

func (s *stubClassifier) PredictProbability(features []float64) (float64, error) {
	return s.prob, nil
}

// testConfig returns a minimal config for testing (in-memory stores)
func testConfig() *config.Config {
	return &config.Config{
		Port:         "8080",
		Env:          "development",
		LogLevel:     "error",
		ModelPath:    "unused-in-tests",
		AdminSecret:  "test-secret",
		RateLimitRPS: 1000,
		CORSOrigins:  "*",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(testConfig(), WithClassifier(&stubClassifier{prob: 0.1}))
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerTestCustomer(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/customers/register", map[string]interface{}{
		"full_name":             "Priya Desai",
		"date_of_birth":         "1990-04-12",
		"gender":                "Female",
		"email":                 "priya.desai@example.com",
		"phone":                 "9876543210",
		"address":               "14 MG Road",
		"city":                  "Pune",
		"state":                 "Maharashtra",
		"pincode":               "411001",
		"pan_number":            "ABCDE1234F",
		"aadhaar_number":        "123456789012",
		"employer_name":         "Acme Software",
		"job_title":             "Engineer",
		"employment_type":       "Salaried",
		"monthly_income":        95000,
		"years_of_experience":   6,
		"employment_start_date": "2019-06-01",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Customer struct {
			ID string `json:"id"`
		} `json:"customer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Customer.ID)
	return resp.Customer.ID
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.Router(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv.Router(), http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Readiness flips only after Run starts
	w = doJSON(t, srv.Router(), http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	srv.ready.Store(true)
	w = doJSON(t, srv.Router(), http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardPage(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.Router(), http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Loanbook")
}

func TestApplicationFlowEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	customerID := registerTestCustomer(t, router)

	// Low-risk stub: the application auto-approves and disburses
	w := doJSON(t, router, http.MethodPost, "/v1/loans/apply", map[string]interface{}{
		"customer_id":        customerID,
		"loan_amount":        500000,
		"loan_tenure_months": 48,
		"interest_rate":      10.5,
		"loan_purpose":       "Home Purchase",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var decision struct {
		Status string `json:"status"`
		LoanID string `json:"loan_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, "Approved", decision.Status)
	assert.NotEmpty(t, decision.LoanID)

	// The disbursed loan shows up in the portfolio summary
	w = doJSON(t, router, http.MethodGet, "/v1/portfolio/summary", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		LoanStatistics struct {
			ActiveLoans int `json:"active_loans"`
		} `json:"loan_statistics"`
		FinancialMetrics struct {
			TotalOutstanding float64 `json:"total_outstanding"`
		} `json:"financial_metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.LoanStatistics.ActiveLoans)
	assert.InDelta(t, 500000, summary.FinancialMetrics.TotalOutstanding, 0.01)
}

func TestScoreEndpoint(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	customerID := registerTestCustomer(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/score", map[string]interface{}{
		"customer_id":        customerID,
		"loan_amount":        300000,
		"loan_tenure_months": 36,
		"interest_rate":      11.0,
		"loan_purpose":       "Car Purchase",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pred struct {
		RiskLevel       string  `json:"risk_level"`
		RiskProbability float64 `json:"risk_probability"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pred))
	assert.Equal(t, "Low", pred.RiskLevel)
	assert.InDelta(t, 0.1, pred.RiskProbability, 0.001)
}

func TestAdminRoutesRequireSecret(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	// No secret: rejected
	w := doJSON(t, router, http.MethodGet, "/v1/admin/webhooks", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Wrong secret: rejected
	w = doJSON(t, router, http.MethodGet, "/v1/admin/webhooks", nil,
		map[string]string{"X-Admin-Secret": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Correct secret: allowed
	w = doJSON(t, router, http.MethodGet, "/v1/admin/webhooks", nil,
		map[string]string{"X-Admin-Secret": "test-secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBatchScoringAdminEndpoint(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	customerID := registerTestCustomer(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/admin/score/batch", map[string]interface{}{
		"applications": []map[string]interface{}{
			{
				"customer_id":        customerID,
				"loan_amount":        200000,
				"loan_tenure_months": 24,
				"interest_rate":      12.0,
				"loan_purpose":       "Personal",
			},
			{
				"customer_id":        "a2f5c3d1-0000-0000-0000-000000000000",
				"loan_amount":        100000,
				"loan_tenure_months": 12,
				"interest_rate":      12.0,
				"loan_purpose":       "Personal",
			},
		},
	}, map[string]string{"X-Admin-Secret": "test-secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Results []struct {
			CustomerID string `json:"customer_id"`
			Error      string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestModelInfoEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.Router(), http.MethodGet, "/v1/model", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var info struct {
		FeatureNames []string `json:"feature_names"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Contains(t, info.FeatureNames, "loan_amount")
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv.Router(), http.MethodGet, "/api", nil,
		map[string]string{"X-Request-ID": "req-abc-123"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-abc-123", w.Header().Get("X-Request-ID"))

	// Generated when absent
	w = doJSON(t, srv.Router(), http.MethodGet, "/api", nil, nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
