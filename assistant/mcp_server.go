package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/teranos/smrt/reports"
	"github.com/teranos/smrt/version"
)

// MCPServer exposes the assistant and the store as MCP tools
type MCPServer struct {
	assistant *Assistant
	server    *server.MCPServer
	now       func() time.Time
}

// NewMCPServer creates an MCP server with the smrt tools registered
func NewMCPServer(a *Assistant) *MCPServer {
	s := &MCPServer{
		assistant: a,
		now:       time.Now,
		server: server.NewMCPServer(
			version.Name,
			version.Get().Version,
			server.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s
}

func (s *MCPServer) registerTools() {
	askTool := mcp.NewTool("smrt_ask",
		mcp.WithDescription("Ask a natural-language question about customers, orders and products"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question, e.g. \"how many orders are pending\""),
		),
	)
	s.server.AddTool(askTool, s.handleAsk)

	searchTool := mcp.NewTool("smrt_search",
		mcp.WithDescription("Search customers and products by name, and orders by customer ID"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query or a customer ID such as C001"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum matches per table (default: store page size)"),
		),
	)
	s.server.AddTool(searchTool, s.handleSearch)

	statsTool := mcp.NewTool("smrt_stats",
		mcp.WithDescription("Record counts, status breakdown, revenue and cache state of the current load"),
	)
	s.server.AddTool(statsTool, s.handleStats)

	reportTool := mcp.NewTool("smrt_report",
		mcp.WithDescription("Render a plain-text business report"),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("One of: "+strings.Join(reports.Kinds, ", ")),
		),
	)
	s.server.AddTool(reportTool, s.handleReport)
}

func (s *MCPServer) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reply, err := s.assistant.Ask(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if reply.Status == StatusError {
		return mcp.NewToolResultError(reply.Response), nil
	}
	return mcp.NewToolResultText(reply.Response), nil
}

func (s *MCPServer) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.assistant.store.Search(ctx, query, request.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	if result.Total == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No matches for %q", query)), nil
	}
	return jsonResult(result)
}

func (s *MCPServer) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.assistant.store.Statistics())
}

func (s *MCPServer) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := reports.Text(s.assistant.store, kind, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Serve runs the MCP server on stdio until stdin closes
func (s *MCPServer) Serve() error {
	return server.ServeStdio(s.server)
}
