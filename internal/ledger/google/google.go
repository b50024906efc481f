package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors transactions into a Google Sheets spreadsheet. Rows land on
// a per-year sheet named "<year> <base>" so old years stay untouched.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// Ensure interface conformance
var _ ledger.Ledger = (*Client)(nil)

// New creates a Sheets-backed ledger client. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes the transaction to the sheet for its year and returns the
// written range as the row reference.
func (c *Client) Append(ctx context.Context, row ledger.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheetName := c.sheetName(row.Date.Year())

	// Find the next empty row by reading the ID column.
	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	amount := float64(row.Amount.Cents) / 100.0
	dataRange := fmt.Sprintf("%s!A%d:F%d", sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		strconv.FormatInt(row.TxID, 10),
		row.Date.UTC().Format("2006-01-02"),
		string(row.Type),
		row.Category,
		amount,
		row.Note,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "Appended ledger row",
		"tx_id", row.TxID,
		"sheet", sheetName,
		"range", dataRange)

	return dataRange, nil
}

// Remove clears the row carrying the given transaction ID. Rows for past
// years are searched too, newest year first.
func (c *Client) Remove(ctx context.Context, txID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	id := strconv.FormatInt(txID, 10)
	year := time.Now().UTC().Year()
	for y := year; y >= year-1; y-- {
		sheetName := c.sheetName(y)
		rng := fmt.Sprintf("%s!A:A", sheetName)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			// A missing sheet for last year is fine.
			continue
		}
		for i, row := range resp.Values {
			if len(row) == 0 {
				continue
			}
			if strings.TrimSpace(fmt.Sprint(row[0])) != id {
				continue
			}
			clearRange := fmt.Sprintf("%s!A%d:F%d", sheetName, i+1, i+1)
			_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
				Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("clear %s: %w", clearRange, err)
			}
			slog.InfoContext(ctx, "Cleared ledger row", "tx_id", txID, "range", clearRange)
			return nil
		}
	}

	// Already gone, or never exported. Treat as done.
	slog.WarnContext(ctx, "Ledger row not found for removal", "tx_id", txID)
	return nil
}

// sheetName returns "<year> <base>" unless base already starts with a 4-digit year.
func (c *Client) sheetName(year int) string {
	base := c.sheetBase
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
