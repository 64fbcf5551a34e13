package memory

import (
	"context"
	"testing"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

func testTransaction(id int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Kind:        core.Expense,
		Date:        core.NewDate(2026, 3, 10),
		Description: "SSD restock",
		Amount:      core.Money{Cents: 320000},
		Category:    "inventory",
		CreatedBy:   "u-editor",
	}
}

func TestStore_AppendAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, testTransaction(1))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}
	if _, err := s.Append(ctx, testTransaction(2)); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	if err := s.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got := s.Transactions()
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Transactions after remove = %+v, want only id 2", got)
	}

	// Unknown id is a no-op.
	if err := s.Remove(ctx, 99); err != nil {
		t.Errorf("Remove of unknown id returned error: %v", err)
	}
}

func TestStore_AppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := testTransaction(1)
	bad.Description = ""

	if _, err := s.Append(context.Background(), bad); err == nil {
		t.Error("Append should reject an invalid transaction")
	}
}

func TestStore_WriteMonthSummary(t *testing.T) {
	s := New()
	ctx := context.Background()

	sum := core.MonthSummary{
		Year:     2026,
		Month:    3,
		Income:   core.Money{Cents: 1200000},
		Expenses: core.Money{Cents: 450000},
		Net:      core.Money{Cents: 750000},
	}
	if err := s.WriteMonthSummary(ctx, sum); err != nil {
		t.Fatalf("WriteMonthSummary failed: %v", err)
	}

	got, ok := s.Summary(2026, 3)
	if !ok {
		t.Fatal("Summary not stored")
	}
	if got.Net.Cents != 750000 {
		t.Errorf("Net = %d, want 750000", got.Net.Cents)
	}

	if err := s.WriteMonthSummary(ctx, core.MonthSummary{Year: 2026, Month: 13}); err == nil {
		t.Error("WriteMonthSummary should reject month 13")
	}
}
