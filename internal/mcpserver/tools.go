package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Loanbook MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScoreApplication = mcp.NewTool("score_application",
	mcp.WithDescription(
		"Run the credit risk model against proposed loan terms for a customer. "+
			"Returns the default probability, derived credit score, risk tier and the "+
			"feature contributions that drove the prediction. Nothing is persisted — "+
			"use submit_application to actually apply."),
	mcp.WithString("customer_id",
		mcp.Required(),
		mcp.Description("The customer's ID (UUID)")),
	mcp.WithNumber("loan_amount",
		mcp.Required(),
		mcp.Description("Requested loan amount in INR")),
	mcp.WithNumber("loan_tenure_months",
		mcp.Required(),
		mcp.Description("Repayment tenure in months")),
	mcp.WithNumber("interest_rate",
		mcp.Required(),
		mcp.Description("Annual interest rate as a percentage (e.g. 10.5)")),
	mcp.WithString("loan_purpose",
		mcp.Required(),
		mcp.Description("Purpose of the loan: 'Home Purchase', 'Car Purchase', 'Education', 'Business Expansion', 'Personal', 'Medical Emergency', 'Debt Consolidation' or 'Home Renovation'")),
)

var ToolSubmitApplication = mcp.NewTool("submit_application",
	mcp.WithDescription(
		"Submit a loan application for a decision. Low-risk applications are "+
			"auto-approved and a loan is disbursed immediately; medium risk goes to "+
			"manual review; high risk is rejected. Returns the decision with the "+
			"credit score and, when approved, the disbursed loan's EMI."),
	mcp.WithString("customer_id",
		mcp.Required(),
		mcp.Description("The customer's ID (UUID)")),
	mcp.WithNumber("loan_amount",
		mcp.Required(),
		mcp.Description("Requested loan amount in INR")),
	mcp.WithNumber("loan_tenure_months",
		mcp.Required(),
		mcp.Description("Repayment tenure in months")),
	mcp.WithNumber("interest_rate",
		mcp.Required(),
		mcp.Description("Annual interest rate as a percentage (e.g. 10.5)")),
	mcp.WithString("loan_purpose",
		mcp.Required(),
		mcp.Description("Purpose of the loan (e.g. 'Home Purchase')")),
)

var ToolListApplications = mcp.NewTool("list_applications",
	mcp.WithDescription(
		"Browse loan applications on the Loanbook platform. "+
			"Optionally filter by decision status to find applications awaiting manual review."),
	mcp.WithString("status",
		mcp.Description("Filter by status: 'Approved', 'Pending' or 'Rejected'"),
		mcp.Enum("Approved", "Pending", "Rejected")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of applications to return (default 20)")),
)

var ToolGetCustomer = mcp.NewTool("get_customer",
	mcp.WithDescription(
		"Look up a customer's profile including employment and income details. "+
			"Use this before scoring to verify the customer exists and check their income."),
	mcp.WithString("customer_id",
		mcp.Required(),
		mcp.Description("The customer's ID (UUID)")),
)

var ToolGetPortfolioSummary = mcp.NewTool("get_portfolio_summary",
	mcp.WithDescription(
		"Get portfolio-wide health metrics for the loan book: active loans, total "+
			"outstanding balance, NPA ratio, default rate and approval rate."),
)

var ToolGetNPAAnalysis = mcp.NewTool("get_npa_analysis",
	mcp.WithDescription(
		"Get the non-performing asset breakdown: NPA loan count and amount per "+
			"classification (Sub-Standard, Doubtful, Loss)."),
)
