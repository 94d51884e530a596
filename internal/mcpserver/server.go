package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Loanbook tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("loanbook", "1.0.0")
	client := NewLoanbookClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScoreApplication, h.HandleScoreApplication)
	s.AddTool(ToolSubmitApplication, h.HandleSubmitApplication)
	s.AddTool(ToolListApplications, h.HandleListApplications)
	s.AddTool(ToolGetCustomer, h.HandleGetCustomer)
	s.AddTool(ToolGetPortfolioSummary, h.HandleGetPortfolioSummary)
	s.AddTool(ToolGetNPAAnalysis, h.HandleGetNPAAnalysis)

	return s
}
