package google

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

func TestNewClient_MissingSpreadsheetID(t *testing.T) {
	_, err := NewClient(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Options{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "oauth client credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_InvalidClientJSON(t *testing.T) {
	_, err := NewClient(context.Background(), Options{
		SpreadsheetID: "test-id",
		ClientJSON:    "invalid-json",
		TokenJSON:     `{"access_token":"test"}`,
	})
	if err == nil {
		t.Fatal("expected error with invalid client JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestClient_AppendValidation(t *testing.T) {
	c := &Client{spreadsheetID: "test", ledgerSheet: "Ledger"}

	bad := core.Transaction{
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 3, 10),
		Description: "keyboard restock",
		Amount:      core.Money{Cents: 0}, // invalid
		Category:    "inventory",
	}

	_, err := c.Append(context.Background(), bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", ledgerSheet: "Ledger", summarySheet: "Summary"}

	ok := core.Transaction{
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 3, 10),
		Description: "keyboard restock",
		Amount:      core.Money{Cents: 150000},
		Category:    "inventory",
	}
	if _, err := c.Append(context.Background(), ok); err == nil {
		t.Error("Append should fail without an initialized service")
	}
	if err := c.Remove(context.Background(), 1); err == nil {
		t.Error("Remove should fail without an initialized service")
	}
	sum := core.MonthSummary{Year: 2026, Month: 3}
	if err := c.WriteMonthSummary(context.Background(), sum); err == nil {
		t.Error("WriteMonthSummary should fail without an initialized service")
	}
}

func TestClient_WriteMonthSummaryRejectsBadMonth(t *testing.T) {
	c := &Client{spreadsheetID: "test", summarySheet: "Summary"}
	err := c.WriteMonthSummary(context.Background(), core.MonthSummary{Year: 2026, Month: 0})
	if err == nil {
		t.Fatal("expected error for month 0")
	}
}
