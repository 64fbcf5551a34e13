package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestProfileUpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetProfile(ctx, "missing"); err != ErrProfileNotFound {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	p := core.Profile{ID: "u-1", FullName: "Juan Dela Cruz", Role: core.RoleViewer}
	if err := repo.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	got, err := repo.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Role != core.RoleViewer || got.FullName != "Juan Dela Cruz" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	// Upsert with a new role must update the same row, not add one
	p.Role = core.RoleEditor
	if err := repo.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("re-upsert profile: %v", err)
	}
	got, err = repo.GetProfile(ctx, "u-1")
	if err != nil {
		t.Fatalf("get profile after upsert: %v", err)
	}
	if got.Role != core.RoleEditor {
		t.Fatalf("role = %q, want editor", got.Role)
	}

	all, err := repo.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(all))
	}
}

func TestProfileUpsertRejectsUnknownRole(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.UpsertProfile(context.Background(), core.Profile{ID: "u-1", FullName: "X", Role: "boss"})
	if err == nil {
		t.Fatal("expected validation error for unknown role")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		Kind:        core.Expense,
		Date:        core.NewDate(2025, 3, 10),
		Description: "GPU restock",
		Amount:      core.Money{Cents: 4500000},
		Category:    "inventory",
		CreatedBy:   "u-1",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Description != "GPU restock" || got.Kind != core.Expense || got.CreatedBy != "u-1" {
		t.Fatalf("unexpected transaction: %+v", got)
	}
	if got.Date.Year() != 2025 || got.Date.Month() != 3 || got.Date.Day() != 10 {
		t.Fatalf("unexpected date: %v", got.Date)
	}

	list, err := repo.ListTransactions(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction in March, got %d", len(list))
	}

	other, err := repo.ListTransactions(ctx, 2025, 4)
	if err != nil {
		t.Fatalf("list other month: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no transactions in April, got %d", len(other))
	}

	if err := repo.SoftDeleteTransaction(ctx, id); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, id); err != ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound after delete, got %v", err)
	}
	if err := repo.SoftDeleteTransaction(ctx, id); err != ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound on double delete, got %v", err)
	}
}

func TestMonthSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entries := []core.Transaction{
		{Kind: core.Income, Date: core.NewDate(2025, 5, 2), Description: "repair job", Amount: core.Money{Cents: 150000}, Category: "services"},
		{Kind: core.Income, Date: core.NewDate(2025, 5, 20), Description: "laptop sale", Amount: core.Money{Cents: 3500000}, Category: "sales"},
		{Kind: core.Expense, Date: core.NewDate(2025, 5, 5), Description: "rent", Amount: core.Money{Cents: 1500000}, Category: "rent"},
		{Kind: core.Expense, Date: core.NewDate(2025, 5, 12), Description: "SSD stock", Amount: core.Money{Cents: 800000}, Category: "inventory"},
		// Out of range: previous month
		{Kind: core.Expense, Date: core.NewDate(2025, 4, 30), Description: "old", Amount: core.Money{Cents: 99999}, Category: "misc"},
	}
	for _, e := range entries {
		if _, err := repo.CreateTransaction(ctx, e); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	sum, err := repo.MonthSummary(ctx, 2025, 5)
	if err != nil {
		t.Fatalf("month summary: %v", err)
	}
	if sum.Income.Cents != 3650000 {
		t.Errorf("income = %d, want 3650000", sum.Income.Cents)
	}
	if sum.Expenses.Cents != 2300000 {
		t.Errorf("expenses = %d, want 2300000", sum.Expenses.Cents)
	}
	if sum.Net.Cents != 1350000 {
		t.Errorf("net = %d, want 1350000", sum.Net.Cents)
	}
	if len(sum.ByCategory) != 2 {
		t.Fatalf("expected 2 expense categories, got %d", len(sum.ByCategory))
	}
	if sum.ByCategory[0].Name != "rent" {
		t.Errorf("largest category = %s, want rent", sum.ByCategory[0].Name)
	}
}

func TestBills(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateBill(ctx, core.Bill{
		StartDate:   core.NewDate(2025, 1, 15),
		Every:       core.Monthly,
		Description: "shop rent",
		Amount:      core.Money{Cents: 1500000},
		Category:    "rent",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	state, err := repo.GetBill(ctx, id)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if !state.LastPosted.IsZero() {
		t.Fatalf("new bill should have zero last posted, got %v", state.LastPosted)
	}
	if state.Bill.Every != core.Monthly {
		t.Fatalf("every = %q, want monthly", state.Bill.Every)
	}

	active, err := repo.ListActiveBills(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list active bills: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active bill, got %d", len(active))
	}

	// Before the start date the bill is not active
	early, err := repo.ListActiveBills(ctx, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list active bills early: %v", err)
	}
	if len(early) != 0 {
		t.Fatalf("expected no active bills before start, got %d", len(early))
	}

	posted := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	if err := repo.UpdateBillLastPosted(ctx, id, posted); err != nil {
		t.Fatalf("update last posted: %v", err)
	}
	state, err = repo.GetBill(ctx, id)
	if err != nil {
		t.Fatalf("get bill after posting: %v", err)
	}
	if !state.LastPosted.Equal(posted) {
		t.Fatalf("last posted = %v, want %v", state.LastPosted, posted)
	}

	if err := repo.DeleteBill(ctx, id); err != nil {
		t.Fatalf("delete bill: %v", err)
	}
	if err := repo.DeleteBill(ctx, id); err != ErrBillNotFound {
		t.Fatalf("expected ErrBillNotFound, got %v", err)
	}
}

func TestSavingsGoals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateSavingsGoal(ctx, core.SavingsGoal{Name: "new aircon", Target: core.Money{Cents: 3000000}})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if err := repo.AddToSavingsGoal(ctx, id, 500000); err != nil {
		t.Fatalf("add to goal: %v", err)
	}
	// Withdraw more than saved clamps to zero
	if err := repo.AddToSavingsGoal(ctx, id, -900000); err != nil {
		t.Fatalf("withdraw from goal: %v", err)
	}

	goals, err := repo.ListSavingsGoals(ctx)
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	if goals[0].Saved.Cents != 0 {
		t.Fatalf("saved = %d, want 0 after clamped withdrawal", goals[0].Saved.Cents)
	}

	if err := repo.AddToSavingsGoal(ctx, 999, 100); err != ErrGoalNotFound {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestAuditLog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entries := []AuditEntry{
		{ID: "a-1", PrincipalID: "u-1", Action: "provision", Status: "denied", Detail: "Forbidden (admin only)"},
		{ID: "a-2", PrincipalID: "u-2", Action: "create", Entity: "transaction", EntityID: "7", Status: "ok"},
	}
	for _, e := range entries {
		if err := repo.InsertAuditEntry(ctx, e); err != nil {
			t.Fatalf("insert audit entry: %v", err)
		}
	}

	got, err := repo.ListAuditEntries(ctx, 10)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	limited, err := repo.ListAuditEntries(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 entry with limit, got %d", len(limited))
	}
}

func TestUnsyncedTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		Kind:        core.Income,
		Date:        core.NewDate(2025, 7, 1),
		Description: "PSU sale",
		Amount:      core.Money{Cents: 350000},
		Category:    "sales",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	pending, err := repo.ListUnsyncedTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 unsynced transaction, got %d", len(pending))
	}

	if err := repo.MarkTransactionSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.ListUnsyncedTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no unsynced transactions, got %d", len(pending))
	}
}
