// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Fehu catalog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/catalogservice"
)

// Server wraps the MCP server with Fehu tools.
type Server struct {
	mcp *server.MCPServer
	svc *catalogservice.Service
}

// New creates a new MCP server with all Fehu tools registered.
func New(svc *catalogservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Fehu",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("import_units",
		mcp.WithDescription("Import or update catalog units (categories and offers). "+
			"The payload MUST follow the canonical import format (items list plus a shared "+
			"updateDate). Read the contract first via the get_import_contract tool or the "+
			"fehu://import-format resource."),
		mcp.WithString("payload", mcp.Required(), mcp.Description("JSON import request following the Fehu import format contract")),
	), s.importUnits)

	s.mcp.AddTool(mcp.NewTool("get_unit",
		mcp.WithDescription("Read a catalog unit with its full descendant tree and derived category prices."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Unit id (UUID)")),
	), s.getUnit)

	s.mcp.AddTool(mcp.NewTool("delete_unit",
		mcp.WithDescription("Delete a catalog unit and every descendant."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Unit id (UUID)")),
	), s.deleteUnit)

	s.mcp.AddTool(mcp.NewTool("get_sales",
		mcp.WithDescription("List offers whose price was refreshed within 24 hours of the given time."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Window end as an ISO-8601 timestamp")),
	), s.getSales)

	s.mcp.AddTool(mcp.NewTool("search_units",
		mcp.WithDescription("Search catalog units by name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchUnits)

	s.mcp.AddTool(mcp.NewTool("get_import_contract",
		mcp.WithDescription("Returns the canonical Fehu import format contract. "+
			"Call this before importing units to ensure correct structure."),
	), s.getImportContract)

	// Resource: import format contract.
	s.mcp.AddResource(
		mcp.NewResource("fehu://import-format", "Import Format Contract",
			mcp.WithResourceDescription("Canonical JSON import format that all unit imports must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type importPayload struct {
	Items      []catalogservice.UnitImport `json:"items"`
	UpdateDate string                      `json:"updateDate"`
}

func (s *Server) importUnits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var payload importPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("malformed payload: %v", err)), nil
	}
	updateDate, err := time.Parse(time.RFC3339, payload.UpdateDate)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("malformed updateDate: %v", err)), nil
	}

	if err := s.svc.ImportBatch(ctx, payload.Items, updateDate.UTC()); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError("import failed"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported %d unit(s)", len(payload.Items))), nil
}

func (s *Server) getUnit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.svc.GetUnit(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(node, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteUnit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteUnit(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getSales(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("malformed date: %v", err)), nil
	}
	offers, err := s.svc.Sales(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(offers) == 0 {
		return mcp.NewToolResultText("no offers in window"), nil
	}
	out, _ := json.MarshalIndent(offers, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchUnits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	var lines []string
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", r.ID, r.Type, r.Name))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getImportContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) readImportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "fehu://import-format",
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}
