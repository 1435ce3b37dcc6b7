// Package google mirrors expense records into a Google Sheets spreadsheet,
// one sheet per year ("2025 Expenses").
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

var _ sheets.Mirror = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	// SheetName is the base name; the record's year is prefixed to it.
	SheetName string

	ServiceAccountJSON string
	ServiceAccountFile string

	// OAuthClientFile and OAuthTokenFile are the alternative to a service
	// account; the token file is written by oauth-init.
	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// New builds a client from cfg. Extra options replace credential discovery,
// which tests use to point the client at a fake endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Expenses"
	}

	if len(opts) == 0 {
		auth, err := credentialOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{auth}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets mirror ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet_base", base)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
	}, nil
}

func credentialOption(ctx context.Context, cfg Config) (goption.ClientOption, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		return goption.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)), nil
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return goption.WithCredentialsJSON(b), nil
	case cfg.OAuthClientFile != "" && cfg.OAuthTokenFile != "":
		ts, err := oauthTokenSource(ctx, cfg.OAuthClientFile, cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		return goption.WithTokenSource(ts), nil
	default:
		return nil, errors.New("missing Google credentials (service account or OAuth client and token)")
	}
}

func oauthTokenSource(ctx context.Context, clientFile, tokenFile string) (oauth2.TokenSource, error) {
	clientJSON, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	oc, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tokenJSON, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return oc.TokenSource(ctx, &tok), nil
}

// Upsert updates the row holding e.ID in the sheet of e's year, or appends a
// new row when there is none.
func (c *Client) Upsert(ctx context.Context, e core.ExpenseRecord) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	sheet := yearPrefixedName(c.sheetBase, e.Date.Year())

	ids, err := c.prepare(ctx, sheet)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{toInterfaces(sheets.Row(e))}}

	if row := findRow(ids, e.ID); row > 0 {
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rowRange(sheet, row), vr).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		slog.InfoContext(ctx, "Updated mirrored expense", "sheet", sheet, "row", row, "expense_id", e.ID)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, a1(sheet, "A:G"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	slog.InfoContext(ctx, "Appended mirrored expense", "sheet", sheet, "expense_id", e.ID)
	return nil
}

// Remove clears the row holding e.ID. The row itself stays so other row
// numbers remain stable.
func (c *Client) Remove(ctx context.Context, e core.ExpenseRecord) error {
	if e.Date.IsZero() {
		slog.WarnContext(ctx, "Cannot locate mirrored expense without a date", "expense_id", e.ID)
		return nil
	}
	sheet := yearPrefixedName(c.sheetBase, e.Date.Year())

	ids, err := c.prepare(ctx, sheet)
	if err != nil {
		return err
	}
	row := findRow(ids, e.ID)
	if row == 0 {
		slog.InfoContext(ctx, "Mirrored expense already absent", "sheet", sheet, "expense_id", e.ID)
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rowRange(sheet, row), &gsheet.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear row %d: %w", row, err)
	}
	slog.InfoContext(ctx, "Removed mirrored expense", "sheet", sheet, "row", row, "expense_id", e.ID)
	return nil
}

// prepare makes sure sheet exists with a header row and returns its ID
// column, index 0 being the header.
func (c *Client) prepare(ctx context.Context, sheet string) ([]string, error) {
	ids, err := c.readIDs(ctx, sheet)
	if isMissingSheet(err) {
		if err := c.addSheet(ctx, sheet); err != nil {
			return nil, err
		}
		ids, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(ids) == 0 {
		if err := c.writeHeader(ctx, sheet); err != nil {
			return nil, err
		}
		ids = []string{sheets.Columns[len(sheets.Columns)-1]}
	}
	return ids, nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1(sheet, "G:G")).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) addSheet(ctx context.Context, sheet string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Created mirror sheet", "sheet", sheet)
	return nil
}

func (c *Client) writeHeader(ctx context.Context, sheet string) error {
	vr := &gsheet.ValueRange{Values: [][]interface{}{toInterfaces(sheets.Columns)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rowRange(sheet, 1), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// findRow returns the 1-based sheet row holding id, skipping the header, or 0.
func findRow(ids []string, id string) int {
	for i := 1; i < len(ids); i++ {
		if ids[i] == id {
			return i + 1
		}
	}
	return 0
}

func isMissingSheet(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 400 && strings.Contains(gerr.Message, "Unable to parse range")
}

// a1 quotes the sheet name for A1 notation.
func a1(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}

func rowRange(sheet string, row int) string {
	return a1(sheet, fmt.Sprintf("A%d:G%d", row, row))
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
