package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/fehu/internal/catalogservice"
	"github.com/starford/fehu/internal/testutil"
)

const (
	idRoot  = "d515e43f-f3f6-4471-bb77-6b455017a2d2"
	idPhone = "98883e8f-0507-482f-bce2-2fb306cf6483"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(testutil.TestService(t))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "import_units":
		result, err = srv.importUnits(ctx, req)
	case "get_unit":
		result, err = srv.getUnit(ctx, req)
	case "delete_unit":
		result, err = srv.deleteUnit(ctx, req)
	case "get_sales":
		result, err = srv.getSales(ctx, req)
	case "search_units":
		result, err = srv.searchUnits(ctx, req)
	case "get_import_contract":
		result, err = srv.getImportContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func importBatch(t *testing.T, srv *Server) {
	t.Helper()
	payload := `{
		"items": [
			{"id": "` + idRoot + `", "name": "Electronics", "type": "CATEGORY"},
			{"id": "` + idPhone + `", "name": "jPhone 13", "type": "OFFER", "parentId": "` + idRoot + `", "price": 79999}
		],
		"updateDate": "2022-05-28T21:12:01.000Z"
	}`
	r := callTool(t, srv, "import_units", map[string]interface{}{"payload": payload})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}
}

func TestImportAndGetUnit(t *testing.T) {
	srv := testServer(t)
	importBatch(t, srv)

	r := callTool(t, srv, "get_unit", map[string]interface{}{"id": idRoot})
	if r.IsError {
		t.Fatalf("get_unit failed: %s", resultText(r))
	}
	var node catalogservice.UnitNode
	if err := json.Unmarshal([]byte(resultText(r)), &node); err != nil {
		t.Fatalf("unmarshal tree: %v", err)
	}
	if node.ID != idRoot {
		t.Errorf("id = %q", node.ID)
	}
	if node.Price == nil || *node.Price != 79999 {
		t.Errorf("derived price = %v, want 79999", node.Price)
	}
	if len(node.Children) != 1 || node.Children[0].ID != idPhone {
		t.Errorf("children = %+v", node.Children)
	}
}

func TestImportMalformedPayload(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "import_units", map[string]interface{}{"payload": "{not json"})
	if !r.IsError {
		t.Error("expected error for malformed payload")
	}

	r = callTool(t, srv, "import_units", map[string]interface{}{
		"payload": `{"items": [{"name": "x", "type": "CATEGORY"}], "updateDate": "yesterday"}`,
	})
	if !r.IsError {
		t.Error("expected error for malformed updateDate")
	}
}

func TestImportValidationError(t *testing.T) {
	srv := testServer(t)
	// A category must not carry a price.
	r := callTool(t, srv, "import_units", map[string]interface{}{
		"payload": `{"items": [{"id": "` + idRoot + `", "name": "X", "type": "CATEGORY", "price": 5}], "updateDate": "2022-05-28T21:12:01.000Z"}`,
	})
	if !r.IsError {
		t.Error("expected validation error")
	}
}

func TestGetUnitMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_unit", map[string]interface{}{"id": idRoot})
	if !r.IsError {
		t.Error("expected error for missing unit")
	}
}

func TestDeleteUnit(t *testing.T) {
	srv := testServer(t)
	importBatch(t, srv)

	r := callTool(t, srv, "delete_unit", map[string]interface{}{"id": idRoot})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	if got := resultText(r); got != "deleted: "+idRoot {
		t.Errorf("delete result = %q", got)
	}

	r = callTool(t, srv, "get_unit", map[string]interface{}{"id": idPhone})
	if !r.IsError {
		t.Error("descendant survived delete")
	}
}

func TestGetSales(t *testing.T) {
	srv := testServer(t)
	importBatch(t, srv)

	r := callTool(t, srv, "get_sales", map[string]interface{}{"date": "2022-05-28T21:12:01.000Z"})
	if r.IsError {
		t.Fatalf("get_sales failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, idPhone) {
		t.Errorf("sales output missing offer: %q", text)
	}

	r = callTool(t, srv, "get_sales", map[string]interface{}{"date": "2023-01-01T00:00:00Z"})
	if text := resultText(r); text != "no offers in window" {
		t.Errorf("empty window result = %q", text)
	}
}

func TestSearchUnits(t *testing.T) {
	srv := testServer(t)
	importBatch(t, srv)

	r := callTool(t, srv, "search_units", map[string]interface{}{"query": "jPhone"})
	if r.IsError {
		t.Fatalf("search failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, idPhone) {
		t.Errorf("search output = %q", text)
	}

	r = callTool(t, srv, "search_units", map[string]interface{}{"query": "zzz-no-match"})
	if text := resultText(r); text != "no matches" {
		t.Errorf("no-match result = %q", text)
	}
}

func TestGetImportContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_import_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "updateDate is mandatory") {
		t.Errorf("contract missing rules: %q", text)
	}
}
