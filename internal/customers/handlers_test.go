package customers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTestRouter() (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryStore())
	handler := NewHandler(svc)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/v1"))
	return r, svc
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Register_201(t *testing.T) {
	r, _ := setupHandlerTestRouter()

	w := postJSON(t, r, "/v1/customers/register", validRegisterRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		CustomerID   string `json:"customer_id"`
		CustomerName string `json:"customer_name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CustomerID)
	assert.Equal(t, "Arjun Sharma", resp.CustomerName)
}

func TestHandler_Register_400Validation(t *testing.T) {
	r, _ := setupHandlerTestRouter()

	req := validRegisterRequest()
	req.Email = "nope"
	w := postJSON(t, r, "/v1/customers/register", req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error)
	require.NotEmpty(t, resp.Fields)
	assert.Equal(t, "email", resp.Fields[0].Field)
}

func TestHandler_Register_409Duplicate(t *testing.T) {
	r, _ := setupHandlerTestRouter()

	w := postJSON(t, r, "/v1/customers/register", validRegisterRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/v1/customers/register", validRegisterRequest())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_GetCustomer(t *testing.T) {
	r, svc := setupHandlerTestRouter()
	customer, err := svc.Register(t.Context(), validRegisterRequest())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/customers/"+customer.ID, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Customer   Customer    `json:"customer"`
		Employment *Employment `json:"employment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, customer.ID, resp.Customer.ID)
	require.NotNil(t, resp.Employment)
	assert.Equal(t, "TCS", resp.Employment.EmployerName)
}

func TestHandler_GetCustomer_404(t *testing.T) {
	r, _ := setupHandlerTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/customers/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_GetCustomer_400BadID(t *testing.T) {
	r, _ := setupHandlerTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/customers/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListCustomers(t *testing.T) {
	r, svc := setupHandlerTestRouter()
	_, err := svc.Register(t.Context(), validRegisterRequest())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/customers?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Customers []map[string]any `json:"customers"`
		Total     int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Bangalore", resp.Customers[0]["city"])
}
