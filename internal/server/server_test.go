package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/maruel/recordbook/internal/book"
	"github.com/maruel/recordbook/internal/kvstore"
	"github.com/maruel/recordbook/internal/storage"
)

func newTestServer(t *testing.T, limiter *rate.Limiter) (*httptest.Server, *book.Book) {
	t.Helper()
	b := book.New(&kvstore.Memory{}, storage.DefaultSeed())
	ts := httptest.NewServer(NewRouter(b, limiter))
	t.Cleanup(ts.Close)
	return ts, b
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Details map[string]any `json:"details"`
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, data := do(t, ts, "GET", "/api/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
	got := decode[map[string]any](t, data)
	if got["status"] != "ok" || got["records"] != float64(3) {
		t.Errorf("got %v", got)
	}
}

func TestRecordsAPI(t *testing.T) {
	ts, b := newTestServer(t, nil)

	resp, data := do(t, ts, "GET", "/api/records?status=active&q=cook", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d: %s", resp.StatusCode, data)
	}
	list := decode[struct {
		Rows   []map[string]any `json:"rows"`
		Totals struct {
			Count  int     `json:"count"`
			Amount float64 `json:"amount"`
		} `json:"totals"`
		Columns []map[string]string `json:"columns"`
		Stats   struct {
			Total  int `json:"total"`
			Active int `json:"active"`
		} `json:"stats"`
	}](t, data)
	if len(list.Rows) != 1 || list.Rows[0]["code"] != "ORD-1001" {
		t.Errorf("rows: got %v", list.Rows)
	}
	if list.Totals.Count != 1 || list.Totals.Amount != 4200 {
		t.Errorf("totals: got %+v", list.Totals)
	}
	if len(list.Columns) != 8 || list.Stats.Total != 3 || list.Stats.Active != 2 {
		t.Errorf("columns %d, stats %+v", len(list.Columns), list.Stats)
	}

	resp, data = do(t, ts, "POST", "/api/records", `{"fields":{"code":"ORD-1004","amount":"12.5"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: status %d: %s", resp.StatusCode, data)
	}
	created := decode[struct {
		Record map[string]any `json:"record"`
	}](t, data)
	id, _ := created.Record["id"].(string)
	if id == "" || created.Record["amount"] != 12.5 {
		t.Errorf("create: got %v", created.Record)
	}
	if b.Records.Len() != 4 {
		t.Errorf("got %d records", b.Records.Len())
	}

	if resp, data := do(t, ts, "POST", "/api/records", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("create without fields: status %d: %s", resp.StatusCode, data)
	}
	if resp, _ := do(t, ts, "POST", "/api/records", `{"bogus":1}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown body field: status %d", resp.StatusCode)
	}

	resp, data = do(t, ts, "PUT", "/api/records/"+id, `{"fields":{"note":"updated"}}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"note":"updated"`) {
		t.Errorf("update: status %d: %s", resp.StatusCode, data)
	}
	resp, data = do(t, ts, "PUT", "/api/records/missing", `{"fields":{"note":"x"}}`)
	if resp.StatusCode != http.StatusNotFound || decode[apiError](t, data).Error.Code != "NOT_FOUND" {
		t.Errorf("update unknown: status %d: %s", resp.StatusCode, data)
	}

	if resp, _ := do(t, ts, "DELETE", "/api/records/"+id, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("delete: status %d", resp.StatusCode)
	}
	if resp, _ := do(t, ts, "DELETE", "/api/records/"+id, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete twice: status %d", resp.StatusCode)
	}
}

func TestColumnsAPI(t *testing.T) {
	ts, b := newTestServer(t, nil)
	resp, data := do(t, ts, "POST", "/api/columns", `{"key":"region","label":"Region"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d: %s", resp.StatusCode, data)
	}
	for _, r := range b.Records.All() {
		if _, ok := r.Fields["region"]; !ok {
			t.Errorf("record %s not backfilled", r.ID)
		}
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"duplicate", "POST", "/api/columns", `{"key":"region","label":"Again"}`, http.StatusConflict, "CONFLICT"},
		{"empty label", "POST", "/api/columns", `{"key":"zone","label":""}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad index", "PUT", "/api/columns/abc", `{"label":"X"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"rename out of range", "PUT", "/api/columns/42", `{"label":"X"}`, http.StatusNotFound, "NOT_FOUND"},
		{"remove out of range", "DELETE", "/api/columns/42", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("got status %d, want %d: %s", resp.StatusCode, tt.status, data)
			}
			if got := decode[apiError](t, data).Error.Code; got != tt.code {
				t.Errorf("got code %q, want %q", got, tt.code)
			}
		})
	}

	resp, data = do(t, ts, "PUT", "/api/columns/0", `{"label":"Order"}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `{"key":"code","label":"Order"}`) {
		t.Errorf("rename: status %d: %s", resp.StatusCode, data)
	}
	if resp, _ := do(t, ts, "DELETE", "/api/columns/8", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("remove: status %d", resp.StatusCode)
	}
	if n := len(b.Schema.Columns()); n != 8 {
		t.Errorf("got %d columns, want 8", n)
	}
}

func TestSettingsAPI(t *testing.T) {
	ts, b := newTestServer(t, nil)
	resp, data := do(t, ts, "PATCH", "/api/settings", `{"brandName":"Acme","compact":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: status %d: %s", resp.StatusCode, data)
	}
	s := b.Settings.Get()
	if s.Brand.Name != "Acme" || !s.Flags.Compact || !s.Flags.ShowTotals {
		t.Errorf("got %+v", s)
	}
	resp, data = do(t, ts, "POST", "/api/settings/toggle/showTotals", "")
	if resp.StatusCode != http.StatusOK || b.Settings.Get().Flags.ShowTotals {
		t.Errorf("toggle: status %d: %s", resp.StatusCode, data)
	}
	if resp, _ := do(t, ts, "POST", "/api/settings/toggle/nope", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown flag: status %d", resp.StatusCode)
	}
	resp, data = do(t, ts, "GET", "/api/settings", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"name":"Acme"`) {
		t.Errorf("get: status %d: %s", resp.StatusCode, data)
	}
}

func TestExportAPI(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	tests := []struct {
		format      string
		contentType string
		filename    string
	}{
		{"json", "application/json", "records.json"},
		{"csv", "text/csv;charset=utf-8", "records.csv"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "records.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp, data := do(t, ts, "GET", "/api/export/"+tt.format, "")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d: %s", resp.StatusCode, data)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("content type: got %q", got)
			}
			if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, tt.filename) {
				t.Errorf("disposition: got %q", got)
			}
			if len(data) == 0 {
				t.Error("empty body")
			}
		})
	}
	resp, data := do(t, ts, "GET", "/api/export/csv", "")
	if !strings.HasPrefix(string(data), `"Code","Customer","Status","Amount"`) {
		t.Errorf("csv: %s", data)
	}
	if resp, _ = do(t, ts, "GET", "/api/export/pdf", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown format: status %d", resp.StatusCode)
	}
}

func TestImportAPI(t *testing.T) {
	ts, b := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", "not json", "IMPORT_PARSE_ERROR"},
		{"not an array", `{"not":"an array"}`, "IMPORT_FORMAT_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, ts, "POST", "/api/import", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("got status %d: %s", resp.StatusCode, data)
			}
			if got := decode[apiError](t, data).Error.Code; got != tt.code {
				t.Errorf("got code %q, want %q", got, tt.code)
			}
		})
	}
	if b.Records.Len() != 3 {
		t.Fatal("rejected imports must not change the collection")
	}

	resp, data := do(t, ts, "POST", "/api/import", `[{"id":"a","code":"A1"},{"id":"b","code":"B1"}]`)
	if resp.StatusCode != http.StatusOK || decode[ImportResponse](t, data).Imported != 2 {
		t.Errorf("import: status %d: %s", resp.StatusCode, data)
	}
	if b.Records.Len() != 2 {
		t.Errorf("got %d records, want 2", b.Records.Len())
	}
}

func TestSchemaAPI(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	for _, name := range []string{"records", "settings"} {
		if resp, data := do(t, ts, "GET", "/api/schema/"+name, ""); resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d: %s", name, resp.StatusCode, data)
		}
	}
	if resp, _ := do(t, ts, "GET", "/api/schema/users", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown schema: status %d", resp.StatusCode)
	}
}

func TestWriteLimiter(t *testing.T) {
	ts, _ := newTestServer(t, NewWriteLimiter(1))
	if resp, data := do(t, ts, "PATCH", "/api/settings", `{"compact":true}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("first write: status %d: %s", resp.StatusCode, data)
	}
	resp, data := do(t, ts, "PATCH", "/api/settings", `{"compact":false}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second write: status %d: %s", resp.StatusCode, data)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if got := decode[apiError](t, data).Error.Code; got != "RATE_LIMITED" {
		t.Errorf("got code %q", got)
	}
	// Reads are not limited.
	if resp, _ := do(t, ts, "GET", "/api/settings", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("read: status %d", resp.StatusCode)
	}
	if NewWriteLimiter(0) != nil {
		t.Error("0 writes per minute should disable the limiter")
	}
}

func TestRequestLogger(t *testing.T) {
	var seen string
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if seen == "" || seen != rec.Header().Get("X-Request-ID") {
		t.Errorf("request id %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d", rec.Code)
	}
	if got := RequestID(t.Context()); got != "" {
		t.Errorf("untagged context: got %q", got)
	}
}
