package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tally/internal/core"
)

func TestNewRequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil || !strings.Contains(err.Error(), "spreadsheet id") {
		t.Fatalf("err = %v", err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), Options{SpreadsheetID: "s"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestTabName(t *testing.T) {
	if got := tabName("Ledger", "0123456789abcdef"); got != "Ledger 01234567" {
		t.Fatalf("tabName = %q", got)
	}
	if got := tabName("Ledger", "ws"); got != "Ledger ws" {
		t.Fatalf("tabName = %q", got)
	}
}

func TestValues(t *testing.T) {
	v := values([]core.LedgerEntry{{
		Transaction:  core.Transaction{RowID: 3, Date: "2024-01-01", Text: "Milk", Amount: decimal.RequireFromString("2")},
		CategoryName: "Food",
	}})
	if len(v) != 2 || v[0][0] != "Row" || v[1][3] != "2.00" || v[1][4] != "Food" {
		t.Fatalf("values = %v", v)
	}
}

// fakeSheetsAPI records the Sheets REST calls the client makes.
type fakeSheetsAPI struct {
	mu    sync.Mutex
	calls []string
	body  map[string]string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.body[r.URL.Path] = string(b)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"title": "Ledger other", "sheetId": 5}},
		}})
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		json.NewEncoder(w).Encode(map[string]any{"replies": []any{
			map[string]any{"addSheet": map[string]any{"properties": map[string]any{"title": "Ledger ws", "sheetId": 9}}},
		}})
	default:
		w.Write([]byte(`{}`))
	}
}

func TestMirrorCreatesTabAndWrites(t *testing.T) {
	api := &fakeSheetsAPI{body: make(map[string]string)}
	srv := httptest.NewServer(api)
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(), goption.WithEndpoint(srv.URL+"/"), goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := newClient(svc, Options{SpreadsheetID: "sheet1"})

	rows := []core.LedgerEntry{{Transaction: core.Transaction{RowID: 1, Text: "Milk", Amount: decimal.NewFromInt(1)}, CategoryName: "Food"}}
	if err := c.Mirror(context.Background(), "ws", rows); err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if len(api.calls) != 4 {
		t.Fatalf("calls = %v", api.calls)
	}
	if !strings.Contains(api.body["/v4/spreadsheets/sheet1:batchUpdate"], `"title":"Ledger ws"`) {
		t.Fatalf("add sheet body = %s", api.body["/v4/spreadsheets/sheet1:batchUpdate"])
	}

	if err := c.Remove(context.Background(), "ws"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if last := api.body["/v4/spreadsheets/sheet1:batchUpdate"]; !strings.Contains(last, `"sheetId":9`) {
		t.Fatalf("delete sheet body = %s", last)
	}
}
