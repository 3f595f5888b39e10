package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/fehu/internal/catalogservice"
	"github.com/starford/fehu/internal/testutil"
)

const (
	idRoot  = "069cb8d7-bbdd-47d3-ad8f-82ef4c269df1"
	idPhone = "863e1a7a-1304-42ae-943b-179184c077e3"
	idTV    = "b1d8fd7d-2ae3-47d5-b2f9-0f094af800d4"
)

// testEnv sets up a temp SQLite catalog, service, and router for testing.
// authToken="" means disabled mode; a non-empty token enables Bearer auth.
func testEnv(t *testing.T, authToken string) (*catalogservice.Service, http.Handler) {
	t.Helper()
	svc := testutil.TestService(t)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func importPayload(updateDate string, items ...map[string]any) map[string]any {
	return map[string]any{"items": items, "updateDate": updateDate}
}

func mustImport(t *testing.T, router http.Handler, updateDate string, items ...map[string]any) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/imports", importPayload(updateDate, items...))
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestImportAndGetNode(t *testing.T) {
	_, router := testEnv(t, "")

	mustImport(t, router, "2022-05-28T21:12:01.000Z",
		map[string]any{"id": idRoot, "name": "Electronics", "type": "CATEGORY"},
		map[string]any{"id": idPhone, "name": "jPhone 13", "type": "OFFER", "parentId": idRoot, "price": 79999},
		map[string]any{"id": idTV, "name": "TV", "type": "OFFER", "parentId": idRoot, "price": 20001},
	)

	w := doJSON(t, router, http.MethodGet, "/nodes/"+idRoot, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var node NodeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if node.ID != idRoot || node.Type != "CATEGORY" {
		t.Errorf("node = %+v", node.UnitResponse)
	}
	if node.Price == nil || *node.Price != 50000 {
		t.Errorf("derived price = %v, want 50000", node.Price)
	}
	if len(node.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(node.Children))
	}
	for _, child := range node.Children {
		if child.Children != nil {
			t.Errorf("offer %s children = %v, want null", child.ID, child.Children)
		}
	}
}

func TestNodeDateFormat(t *testing.T) {
	_, router := testEnv(t, "")
	mustImport(t, router, "2022-05-28T21:12:01.000Z",
		map[string]any{"id": idRoot, "name": "Root", "type": "CATEGORY"},
	)

	w := doJSON(t, router, http.MethodGet, "/nodes/"+idRoot, nil)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if got := string(raw["date"]); got != `"2022-05-28T21:12:01.000Z"` {
		t.Errorf("date = %s, want millisecond ISO with Z suffix", got)
	}
	// Childless category still derives a null price.
	if got := string(raw["price"]); got != "null" {
		t.Errorf("price = %s, want null", got)
	}
}

func TestImportValidationEnvelope(t *testing.T) {
	_, router := testEnv(t, "")

	// Offer without price must be rejected with the canonical envelope.
	w := doJSON(t, router, http.MethodPost, "/imports", importPayload("2022-05-28T21:12:01.000Z",
		map[string]any{"id": idPhone, "name": "jPhone 13", "type": "OFFER"},
	))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != 400 || resp.Message != "Validation Failed" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestImportMissingUpdateDate(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPost, "/imports", map[string]any{
		"items": []map[string]any{{"id": idRoot, "name": "Root", "type": "CATEGORY"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestImportMalformedBody(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/imports", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/nodes/"+idRoot, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != 404 || resp.Message != "Item not found" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestGetNodeBadID(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/nodes/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteNode(t *testing.T) {
	_, router := testEnv(t, "")
	mustImport(t, router, "2022-05-28T21:12:01.000Z",
		map[string]any{"id": idRoot, "name": "Root", "type": "CATEGORY"},
		map[string]any{"id": idPhone, "name": "Phone", "type": "OFFER", "parentId": idRoot, "price": 100},
	)

	w := doJSON(t, router, http.MethodDelete, "/delete/"+idRoot, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	// Both the category and its offer are gone.
	for _, id := range []string{idRoot, idPhone} {
		if w := doJSON(t, router, http.MethodGet, "/nodes/"+id, nil); w.Code != http.StatusNotFound {
			t.Errorf("get %s after delete = %d, want 404", id, w.Code)
		}
	}

	// Deleting again is a 404.
	if w := doJSON(t, router, http.MethodDelete, "/delete/"+idRoot, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestSales(t *testing.T) {
	_, router := testEnv(t, "")
	mustImport(t, router, "2022-05-28T21:12:01.000Z",
		map[string]any{"id": idRoot, "name": "Root", "type": "CATEGORY"},
		map[string]any{"id": idPhone, "name": "Phone", "type": "OFFER", "parentId": idRoot, "price": 100},
	)

	// Window ending exactly at the import date includes the offer.
	w := doJSON(t, router, http.MethodGet, "/sales?date=2022-05-28T21:12:01.000Z", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sales status = %d", w.Code)
	}
	var resp SalesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != idPhone {
		t.Errorf("items = %+v, want the phone offer", resp.Items)
	}

	// A window ending exactly 24h later still includes it (inclusive lower bound).
	w = doJSON(t, router, http.MethodGet, "/sales?date=2022-05-29T21:12:01.000Z", nil)
	resp = SalesResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Items) != 1 {
		t.Errorf("boundary window items = %+v, want 1", resp.Items)
	}

	// Two days later the offer has aged out.
	w = doJSON(t, router, http.MethodGet, "/sales?date=2022-05-30T21:12:01.000Z", nil)
	resp = SalesResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Items) != 0 {
		t.Errorf("stale window items = %+v, want none", resp.Items)
	}
}

func TestSalesBadDate(t *testing.T) {
	_, router := testEnv(t, "")
	if w := doJSON(t, router, http.MethodGet, "/sales?date=yesterday", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/sales", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing date status = %d, want 400", w.Code)
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")
	mustImport(t, router, "2022-05-28T21:12:01.000Z",
		map[string]any{"id": idRoot, "name": "Smartphones", "type": "CATEGORY"},
		map[string]any{"id": idPhone, "name": "jPhone 13", "type": "OFFER", "parentId": idRoot, "price": 79999},
	)

	w := doJSON(t, router, http.MethodGet, "/search?q=jPhone", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != idPhone {
		t.Errorf("results = %+v", resp.Results)
	}

	if w := doJSON(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "sekrit")

	// No token.
	w := doJSON(t, router, http.MethodGet, "/nodes/"+idRoot, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/nodes/"+idRoot, nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	// Correct token reaches the handler (404 because nothing imported).
	req = httptest.NewRequest(http.MethodGet, "/nodes/"+idRoot, nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("valid token status = %d, want 404", w.Code)
	}
}

func TestPatchThroughAPI(t *testing.T) {
	_, router := testEnv(t, "")
	mustImport(t, router, "2022-05-28T21:12:01.000Z",
		map[string]any{"id": idRoot, "name": "Root", "type": "CATEGORY"},
		map[string]any{"id": idPhone, "name": "Phone", "type": "OFFER", "parentId": idRoot, "price": 100},
	)

	// Re-import with only a new price; name and parent must survive.
	mustImport(t, router, "2022-05-29T00:00:00.000Z",
		map[string]any{"id": idPhone, "type": "OFFER", "price": 150},
	)

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/nodes/%s", idPhone), nil)
	var node NodeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &node); err != nil {
		t.Fatal(err)
	}
	if node.Name != "Phone" {
		t.Errorf("name = %q, want Phone", node.Name)
	}
	if node.ParentID == nil || *node.ParentID != idRoot {
		t.Errorf("parentId = %v, want %s", node.ParentID, idRoot)
	}
	if node.Price == nil || *node.Price != 150 {
		t.Errorf("price = %v, want 150", node.Price)
	}
}
