package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

const testSpreadsheet = "sheet-id"

// fakeSheets is an in-memory stand-in for the Sheets v4 values API,
// enough for reading column G, updating, appending and clearing rows.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string][][]string
	calls  []string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{sheets: map[string][][]string{}}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/"+testSpreadsheet)
	f.calls = append(f.calls, r.Method+" "+path)

	if path == ":batchUpdate" {
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.sheets[rq.AddSheet.Properties.Title] = nil
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": testSpreadsheet})
		return
	}

	rng := strings.TrimPrefix(path, "/values/")
	action := ""
	for _, suffix := range []string{":append", ":clear"} {
		if strings.HasSuffix(rng, suffix) {
			action, rng = suffix, strings.TrimSuffix(rng, suffix)
		}
	}
	sheet, cells := splitRange(rng)
	rows, ok := f.sheets[sheet]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code":    400,
			"message": "Unable to parse range: " + rng,
			"status":  "INVALID_ARGUMENT",
		}})
		return
	}

	switch {
	case r.Method == http.MethodGet:
		var values [][]string
		for _, row := range rows {
			if len(row) > 6 && row[6] != "" {
				values = append(values, []string{row[6]})
			} else {
				values = append(values, []string{})
			}
		}
		for len(values) > 0 && len(values[len(values)-1]) == 0 {
			values = values[:len(values)-1]
		}
		writeJSON(w, http.StatusOK, map[string]any{"range": rng, "values": values})
	case r.Method == http.MethodPut:
		n := startRow(cells)
		for len(rows) < n {
			rows = append(rows, nil)
		}
		rows[n-1] = decodeRow(r)
		f.sheets[sheet] = rows
		writeJSON(w, http.StatusOK, map[string]any{})
	case action == ":append":
		last := len(rows)
		for last > 0 && len(rows[last-1]) == 0 {
			last--
		}
		rows = append(rows[:last], decodeRow(r))
		f.sheets[sheet] = rows
		writeJSON(w, http.StatusOK, map[string]any{})
	case action == ":clear":
		if n := startRow(cells); n <= len(rows) {
			rows[n-1] = nil
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSheets) rows(sheet string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.sheets[sheet]...)
}

func (f *fakeSheets) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func splitRange(rng string) (string, string) {
	i := strings.LastIndex(rng, "'!")
	if !strings.HasPrefix(rng, "'") || i < 0 {
		return rng, ""
	}
	return strings.ReplaceAll(rng[1:i], "''", "'"), rng[i+2:]
}

// startRow reads the row number of an "A5:G5" cell range.
func startRow(cells string) int {
	start := strings.SplitN(cells, ":", 2)[0]
	n, _ := strconv.Atoi(strings.TrimLeft(start, "ABCDEFG"))
	return n
}

func decodeRow(r *http.Request) []string {
	var vr struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&vr)
	if len(vr.Values) == 0 {
		return nil
	}
	out := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		out[i], _ = v.(string)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: testSpreadsheet, SheetName: "Expenses"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake
}

func record(id, title string, date core.Date) core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:             id,
		OwnerID:        "u1",
		Title:          title,
		Amount:         core.MoneyFromCents(1250),
		Category:       "Food",
		Date:           date,
		PaymentMethod:  "Card",
		RecurrenceType: core.RecurrenceNone,
	}
}

func TestUpsertCreatesYearSheetWithHeader(t *testing.T) {
	c, fake := newTestClient(t)
	e := record("e1", "Lunch", core.NewDate(2025, 3, 4))

	if err := c.Upsert(context.Background(), e); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rows := fake.rows("2025 Expenses")
	want := [][]string{sheets.Columns, sheets.Row(e)}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	e := record("e1", "Lunch", core.NewDate(2025, 3, 4))
	other := record("e2", "Taxi", core.NewDate(2025, 3, 5))

	for _, r := range []core.ExpenseRecord{e, other} {
		if err := c.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert %s: %v", r.ID, err)
		}
	}
	e.Title = "Team lunch"
	if err := c.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	rows := fake.rows("2025 Expenses")
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Team lunch" || rows[1][6] != "e1" {
		t.Errorf("row 2 = %v", rows[1])
	}
	if rows[2][6] != "e2" {
		t.Errorf("row 3 = %v", rows[2])
	}
}

func TestUpsertSplitsSheetsByYear(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Upsert(ctx, record("e1", "Dinner", core.NewDate(2024, 12, 31))); err != nil {
		t.Fatal(err)
	}
	if err := c.Upsert(ctx, record("e2", "Brunch", core.NewDate(2025, 1, 1))); err != nil {
		t.Fatal(err)
	}

	if got := len(fake.rows("2024 Expenses")); got != 2 {
		t.Errorf("2024 sheet rows = %d, want 2", got)
	}
	if got := len(fake.rows("2025 Expenses")); got != 2 {
		t.Errorf("2025 sheet rows = %d, want 2", got)
	}
}

func TestRemoveClearsRow(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	first := record("e1", "Lunch", core.NewDate(2025, 3, 4))
	second := record("e2", "Taxi", core.NewDate(2025, 3, 5))

	for _, r := range []core.ExpenseRecord{first, second} {
		if err := c.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Remove(ctx, first); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	rows := fake.rows("2025 Expenses")
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if len(rows[1]) != 0 {
		t.Errorf("row 2 should be cleared, got %v", rows[1])
	}
	if rows[2][6] != "e2" {
		t.Errorf("row 3 moved: %v", rows[2])
	}

	// Unknown and already removed records are fine.
	if err := c.Remove(ctx, first); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if err := c.Remove(ctx, core.ExpenseRecord{ID: "no-date"}); err != nil {
		t.Errorf("Remove without date: %v", err)
	}
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.Upsert(context.Background(), record("e1", "  ", core.NewDate(2025, 3, 4)))
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := fake.callCount(); n != 0 {
		t.Errorf("expected no API calls, got %d", n)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestCredentialOption(t *testing.T) {
	ctx := context.Background()

	if _, err := credentialOption(ctx, Config{}); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := credentialOption(ctx, Config{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing service account file")
	}

	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte("invalid-json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"test"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := credentialOption(ctx, Config{OAuthClientFile: clientFile, OAuthTokenFile: tokenFile})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Expenses", 2025, "2025 Expenses"},
		{"  Expenses ", 2024, "2024 Expenses"},
		{"2023 Expenses", 2025, "2023 Expenses"},
		{"1800 Expenses", 2025, "2025 1800 Expenses"},
		{"", 2025, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestFindRow(t *testing.T) {
	ids := []string{"ID", "a", "", "b"}
	if got := findRow(ids, "b"); got != 4 {
		t.Errorf("findRow(b) = %d, want 4", got)
	}
	if got := findRow(ids, "ID"); got != 0 {
		t.Errorf("header must not match, got %d", got)
	}
	if got := findRow(ids, "zzz"); got != 0 {
		t.Errorf("findRow(zzz) = %d, want 0", got)
	}
}

func TestA1QuotesSheetName(t *testing.T) {
	if got := a1("2025 Bob's", "A:G"); got != "'2025 Bob''s'!A:G" {
		t.Errorf("a1 = %q", got)
	}
	if got := rowRange("2025 Expenses", 7); got != "'2025 Expenses'!A7:G7" {
		t.Errorf("rowRange = %q", got)
	}
}
