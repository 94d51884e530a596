package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *LoanbookClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *LoanbookClient) *Handlers {
	return &Handlers{client: client}
}

// loanTermsFromRequest pulls the common scoring fields out of a tool call.
func loanTermsFromRequest(req mcp.CallToolRequest) (map[string]any, error) {
	customerID := req.GetString("customer_id", "")
	if customerID == "" {
		return nil, fmt.Errorf("customer_id is required")
	}
	amount := req.GetFloat("loan_amount", 0)
	if amount <= 0 {
		return nil, fmt.Errorf("loan_amount must be positive")
	}
	tenure := req.GetInt("loan_tenure_months", 0)
	if tenure <= 0 {
		return nil, fmt.Errorf("loan_tenure_months must be positive")
	}
	rate := req.GetFloat("interest_rate", 0)
	if rate <= 0 {
		return nil, fmt.Errorf("interest_rate must be positive")
	}
	purpose := req.GetString("loan_purpose", "")
	if purpose == "" {
		return nil, fmt.Errorf("loan_purpose is required")
	}

	return map[string]any{
		"customer_id":        customerID,
		"loan_amount":        amount,
		"loan_tenure_months": tenure,
		"interest_rate":      rate,
		"loan_purpose":       purpose,
	}, nil
}

// HandleScoreApplication runs the risk model without persisting anything.
func (h *Handlers) HandleScoreApplication(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	terms, err := loanTermsFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.ScoreApplication(ctx, terms)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scoring failed: %v", err)), nil
	}

	text, err := formatPrediction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse prediction: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleSubmitApplication submits an application for a decision.
func (h *Handlers) HandleSubmitApplication(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	terms, err := loanTermsFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := h.client.SubmitApplication(ctx, terms)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Submission failed: %v", err)), nil
	}

	text, err := formatDecision(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decision: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListApplications lists loan applications.
func (h *Handlers) HandleListApplications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := req.GetString("status", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListApplications(ctx, status, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list applications: %v", err)), nil
	}

	text, err := formatApplicationList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse applications: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetCustomer retrieves a customer profile.
func (h *Handlers) HandleGetCustomer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("customer_id", "")
	if id == "" {
		return mcp.NewToolResultError("customer_id is required"), nil
	}

	raw, err := h.client.GetCustomer(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get customer: %v", err)), nil
	}

	text, err := formatCustomer(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse customer: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetPortfolioSummary returns portfolio health metrics.
func (h *Handlers) HandleGetPortfolioSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetPortfolioSummary(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get portfolio summary: %v", err)), nil
	}

	text, err := formatSummary(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse summary: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetNPAAnalysis returns the NPA breakdown.
func (h *Handlers) HandleGetNPAAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetNPAAnalysis(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get NPA analysis: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// --- Formatting helpers ---

func formatPrediction(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Credit Risk Assessment:\n")
	if v, ok := getFloat(m, "risk_probability"); ok {
		sb.WriteString(fmt.Sprintf("  Default probability: %.1f%%\n", v*100))
	}
	if v := getString(m, "risk_level"); v != "" {
		sb.WriteString(fmt.Sprintf("  Risk tier: %s\n", v))
	}
	if v, ok := getFloat(m, "credit_score"); ok {
		sb.WriteString(fmt.Sprintf("  Credit score: %.0f\n", v))
	}
	if v := getString(m, "recommendation"); v != "" {
		sb.WriteString(fmt.Sprintf("  Recommendation: %s\n", v))
	}

	if contributors, ok := m["contributors"].([]any); ok && len(contributors) > 0 {
		sb.WriteString("\nTop risk drivers:\n")
		for _, c := range contributors {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			impact, _ := getFloat(cm, "impact")
			sb.WriteString(fmt.Sprintf("  %s: %+.4f\n", getString(cm, "feature"), impact))
		}
	}

	return sb.String(), nil
}

func formatDecision(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	status := getString(m, "status")
	sb.WriteString(fmt.Sprintf("Application decision: %s\n", status))
	if v := getString(m, "application_id"); v != "" {
		sb.WriteString(fmt.Sprintf("  Application ID: %s\n", v))
	}
	if v, ok := getFloat(m, "credit_score"); ok {
		sb.WriteString(fmt.Sprintf("  Credit score: %.0f\n", v))
	}
	if v := getString(m, "recommendation"); v != "" {
		sb.WriteString(fmt.Sprintf("  Remarks: %s\n", v))
	}
	if loanID := getString(m, "loan_id"); loanID != "" {
		emi, _ := getFloat(m, "emi_amount")
		sb.WriteString(fmt.Sprintf("\nLoan disbursed (ID: %s)\n  Monthly EMI: ₹%.2f\n", loanID, emi))
	} else if status == "Pending" {
		sb.WriteString("\nThe application is queued for manual review.\n")
	}

	return sb.String(), nil
}

func formatApplicationList(raw json.RawMessage) (string, error) {
	var resp struct {
		Applications []map[string]any `json:"applications"`
		Total        int              `json:"total"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unexpected applications response format")
	}

	if len(resp.Applications) == 0 {
		return "No applications found.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d application(s) (showing %d):\n\n", resp.Total, len(resp.Applications)))
	for i, a := range resp.Applications {
		amount, _ := getFloat(a, "loan_amount")
		score, _ := getFloat(a, "credit_score")
		sb.WriteString(fmt.Sprintf("%d. %s — ₹%.0f for %s\n", i+1, getString(a, "customer_name"), amount, getString(a, "loan_purpose")))
		sb.WriteString(fmt.Sprintf("   Status: %s | Credit score: %.0f | ID: %s\n", getString(a, "status"), score, getString(a, "id")))
	}
	return sb.String(), nil
}

func formatCustomer(raw json.RawMessage) (string, error) {
	var resp struct {
		Customer   map[string]any `json:"customer"`
		Employment map[string]any `json:"employment"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Customer == nil {
		return "", fmt.Errorf("unexpected customer response format")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Customer: %s\n", getString(resp.Customer, "full_name")))
	sb.WriteString(fmt.Sprintf("  ID: %s\n", getString(resp.Customer, "id")))
	sb.WriteString(fmt.Sprintf("  Location: %s, %s\n", getString(resp.Customer, "city"), getString(resp.Customer, "state")))
	if resp.Employment != nil {
		income, _ := getFloat(resp.Employment, "monthly_income")
		sb.WriteString(fmt.Sprintf("  Employer: %s (%s)\n", getString(resp.Employment, "employer_name"), getString(resp.Employment, "employment_type")))
		sb.WriteString(fmt.Sprintf("  Monthly income: ₹%.0f\n", income))
	}
	return sb.String(), nil
}

func formatSummary(raw json.RawMessage) (string, error) {
	var resp struct {
		LoanStatistics   map[string]any `json:"loan_statistics"`
		FinancialMetrics map[string]any `json:"financial_metrics"`
		RiskMetrics      map[string]any `json:"risk_metrics"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unexpected summary response format")
	}

	var sb strings.Builder
	sb.WriteString("Portfolio Summary:\n")
	if resp.LoanStatistics != nil {
		total, _ := getFloat(resp.LoanStatistics, "total_loans")
		active, _ := getFloat(resp.LoanStatistics, "active_loans")
		sb.WriteString(fmt.Sprintf("  Loans: %.0f total, %.0f active\n", total, active))
	}
	if resp.FinancialMetrics != nil {
		outstanding, _ := getFloat(resp.FinancialMetrics, "total_outstanding")
		disbursed, _ := getFloat(resp.FinancialMetrics, "total_disbursed")
		sb.WriteString(fmt.Sprintf("  Disbursed: ₹%.0f | Outstanding: ₹%.0f\n", disbursed, outstanding))
	}
	if resp.RiskMetrics != nil {
		npa, _ := getFloat(resp.RiskMetrics, "npa_ratio")
		defRate, _ := getFloat(resp.RiskMetrics, "default_rate")
		approval, _ := getFloat(resp.RiskMetrics, "approval_rate")
		sb.WriteString(fmt.Sprintf("  NPA ratio: %.2f%% | Default rate: %.2f%% | Approval rate: %.1f%%\n", npa, defRate, approval))
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
