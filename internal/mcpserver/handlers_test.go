package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	cfg := Config{
		APIURL:      ts.URL,
		AdminSecret: "test-secret",
	}
	client := NewLoanbookClient(cfg)
	h := NewHandlers(client)
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func validTerms() map[string]any {
	return map[string]any{
		"customer_id":        "c1d2e3f4-0000-0000-0000-000000000000",
		"loan_amount":        500000.0,
		"loan_tenure_months": 48.0,
		"interest_rate":      10.5,
		"loan_purpose":       "Home Purchase",
	}
}

// ============================================================
// Client tests
// ============================================================

func TestClient_DoRequest_AdminHeader(t *testing.T) {
	var gotSecret string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Admin-Secret")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewLoanbookClient(Config{APIURL: ts.URL, AdminSecret: "s3cret"})
	_, err := client.GetPortfolioSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3cret", gotSecret)
}

func TestClient_DoRequest_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "not_found",
			"message": "customer not found",
		})
	}))
	defer ts.Close()

	client := NewLoanbookClient(Config{APIURL: ts.URL})
	_, err := client.GetCustomer(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "customer not found")
}

func TestClient_DoRequest_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	client := NewLoanbookClient(Config{APIURL: ts.URL})
	_, err := client.GetPortfolioSummary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_ListApplications_QueryParams(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"applications": [], "total": 0}`))
	}))
	defer ts.Close()

	client := NewLoanbookClient(Config{APIURL: ts.URL})
	_, err := client.ListApplications(context.Background(), "Pending", 5)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "status=Pending")
	assert.Contains(t, gotQuery, "limit=5")
}

// ============================================================
// score_application
// ============================================================

func TestHandleScoreApplication_Success(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/score", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "Home Purchase", req["loan_purpose"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"risk_probability": 0.12,
			"risk_level":       "Low",
			"credit_score":     784.0,
			"recommendation":   "Approve",
			"contributors": []map[string]any{
				{"feature": "loan_to_income_ratio", "impact": 0.031},
			},
		})
	}))
	defer cleanup()

	result, err := h.HandleScoreApplication(context.Background(), makeRequest(validTerms()))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "12.0%")
	assert.Contains(t, text, "Risk tier: Low")
	assert.Contains(t, text, "Credit score: 784")
	assert.Contains(t, text, "loan_to_income_ratio")
}

func TestHandleScoreApplication_MissingFields(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API should not be called")
	}))
	defer cleanup()

	for _, drop := range []string{"customer_id", "loan_amount", "loan_tenure_months", "interest_rate", "loan_purpose"} {
		terms := validTerms()
		delete(terms, drop)
		result, err := h.HandleScoreApplication(context.Background(), makeRequest(terms))
		require.NoError(t, err)
		assert.True(t, result.IsError, "expected error when %s is missing", drop)
	}
}

func TestHandleScoreApplication_APIFailure(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "not_found", "message": "customer not found"})
	}))
	defer cleanup()

	result, err := h.HandleScoreApplication(context.Background(), makeRequest(validTerms()))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "customer not found")
}

// ============================================================
// submit_application
// ============================================================

func TestHandleSubmitApplication_Approved(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/loans/apply", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"application_id": "app-1",
			"status":         "Approved",
			"credit_score":   795.0,
			"loan_id":        "loan-1",
			"emi_amount":     12796.32,
		})
	}))
	defer cleanup()

	result, err := h.HandleSubmitApplication(context.Background(), makeRequest(validTerms()))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Approved")
	assert.Contains(t, text, "loan-1")
	assert.Contains(t, text, "12796.32")
}

func TestHandleSubmitApplication_Pending(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"application_id": "app-2",
			"status":         "Pending",
			"credit_score":   620.0,
		})
	}))
	defer cleanup()

	result, err := h.HandleSubmitApplication(context.Background(), makeRequest(validTerms()))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Pending")
	assert.Contains(t, text, "manual review")
	assert.NotContains(t, text, "Loan disbursed")
}

// ============================================================
// list_applications
// ============================================================

func TestHandleListApplications(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/loans/applications", r.URL.Path)
		assert.Equal(t, "Rejected", r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"applications": []map[string]any{
				{
					"id":            "app-9",
					"customer_name": "Arjun Sharma",
					"loan_amount":   1000000.0,
					"loan_purpose":  "Business Expansion",
					"status":        "Rejected",
					"credit_score":  512.0,
				},
			},
			"total": 1,
		})
	}))
	defer cleanup()

	result, err := h.HandleListApplications(context.Background(), makeRequest(map[string]any{
		"status": "Rejected",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Arjun Sharma")
	assert.Contains(t, text, "Business Expansion")
	assert.Contains(t, text, "Rejected")
}

func TestHandleListApplications_Empty(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"applications": [], "total": 0}`))
	}))
	defer cleanup()

	result, err := h.HandleListApplications(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "No applications found.", resultText(t, result))
}

// ============================================================
// get_customer
// ============================================================

func TestHandleGetCustomer(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/customers/cust-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"customer": map[string]any{
				"id":        "cust-1",
				"full_name": "Priya Desai",
				"city":      "Pune",
				"state":     "Maharashtra",
			},
			"employment": map[string]any{
				"employer_name":   "Acme Software",
				"employment_type": "Salaried",
				"monthly_income":  95000.0,
			},
		})
	}))
	defer cleanup()

	result, err := h.HandleGetCustomer(context.Background(), makeRequest(map[string]any{
		"customer_id": "cust-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Priya Desai")
	assert.Contains(t, text, "Pune, Maharashtra")
	assert.Contains(t, text, "Acme Software")
	assert.Contains(t, text, "95000")
}

func TestHandleGetCustomer_MissingID(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API should not be called")
	}))
	defer cleanup()

	result, err := h.HandleGetCustomer(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// ============================================================
// portfolio tools
// ============================================================

func TestHandleGetPortfolioSummary(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/portfolio/summary", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"loan_statistics":   map[string]any{"total_loans": 50.0, "active_loans": 42.0},
			"financial_metrics": map[string]any{"total_disbursed": 50000000.0, "total_outstanding": 45000000.0},
			"risk_metrics":      map[string]any{"npa_ratio": 12.0, "default_rate": 12.0, "approval_rate": 62.5},
		})
	}))
	defer cleanup()

	result, err := h.HandleGetPortfolioSummary(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "50 total, 42 active")
	assert.Contains(t, text, "NPA ratio: 12.00%")
	assert.Contains(t, text, "Approval rate: 62.5%")
}

func TestHandleGetNPAAnalysis(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/portfolio/npa-analysis", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_npa_loans": 6,
			"npa_by_classification": map[string]any{
				"Sub-Standard": 4,
				"Doubtful":     2,
			},
		})
	}))
	defer cleanup()

	result, err := h.HandleGetNPAAnalysis(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Sub-Standard")
}
