// Package google exports ledger data to a Google Spreadsheet.
//
// The exported ledger sheet carries one row per transaction:
// A=id, B=date, C=kind, D=description, E=amount in pesos, F=category.
// A companion summary sheet carries one row per month.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	ports "github.com/rhexdiaz/pcshop-finance-tracker/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	summarySheet  string
}

// Ensure interface conformance
var (
	_ ports.TransactionAppender = (*Client)(nil)
	_ ports.TransactionRemover  = (*Client)(nil)
	_ ports.SummaryWriter       = (*Client)(nil)
)

// Options carries everything needed to open a spreadsheet. OAuth client
// and token can each come inline as JSON or from a file; inline wins.
type Options struct {
	SpreadsheetID string
	LedgerSheet   string
	SummarySheet  string

	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	ledger := strings.TrimSpace(opts.LedgerSheet)
	if ledger == "" {
		ledger = "Ledger"
	}
	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = "Summary"
	}

	clientBytes, err := credentialBytes(opts.ClientJSON, opts.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	cfg, err := oauthgoogle.ConfigFromJSON(clientBytes, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenBytes, err := credentialBytes(opts.TokenJSON, opts.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithTokenSource(cfg.TokenSource(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		ledgerSheet:   ledger,
		summarySheet:  summary,
	}, nil
}

func credentialBytes(inline, file string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if strings.TrimSpace(file) != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("not configured")
}

// Append writes the transaction to the next free ledger row and returns
// a range reference like "Ledger!A7:F7".
func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.ledgerSheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.ledgerSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		t.ID,
		t.Date.Format("2006-01-02"),
		string(t.Kind),
		t.Description,
		t.Amount.Pesos(),
		t.Category,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// Remove clears the row exported for the given transaction id. Removing
// an id that was never exported is not an error.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A2:A", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ledger ids: %w", err)
	}

	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 || strings.TrimSpace(fmt.Sprint(row[0])) != want {
			continue
		}
		// Rows are 1-based and the id column starts at row 2.
		clearRange := fmt.Sprintf("%s!A%d:F%d", c.ledgerSheet, i+2, i+2)
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("clear %s: %w", clearRange, err)
		}
		return nil
	}
	return nil
}

// WriteMonthSummary writes the month's totals to a fixed row on the
// summary sheet: row 2 for January through row 13 for December.
func (c *Client) WriteMonthSummary(ctx context.Context, s core.MonthSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if s.Month < 1 || s.Month > 12 {
		return fmt.Errorf("invalid month: %d", s.Month)
	}

	row := s.Month + 1
	dataRange := fmt.Sprintf("%s!A%d:D%d", c.summarySheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		fmt.Sprintf("%04d-%02d", s.Year, s.Month),
		s.Income.Pesos(),
		s.Expenses.Pesos(),
		s.Net.Pesos(),
	}}}

	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}
	return nil
}
