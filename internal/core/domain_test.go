package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Kind:        Expense,
		Date:        NewDate(2025, 1, 1),
		Description: "RAM sticks",
		Amount:      Money{Cents: 250000},
		Category:    "inventory",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid transaction, got %v", err)
	}

	bad := good
	bad.Kind = "transfer"
	if err := bad.Validate(); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	bad = good
	bad.Description = "  "
	if err := bad.Validate(); err != ErrEmptyDescription {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}

	bad = good
	bad.Category = ""
	if err := bad.Validate(); err != ErrEmptyCategory {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}

	bad = good
	bad.Amount = Money{Cents: -5}
	if err := bad.Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBillValidate(t *testing.T) {
	good := Bill{
		StartDate:   NewDate(2025, 1, 15),
		Every:       Monthly,
		Description: "shop rent",
		Amount:      Money{Cents: 1500000},
		Category:    "rent",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid bill, got %v", err)
	}

	bad := good
	bad.Every = "fortnightly"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for invalid repetition type")
	}

	bad = good
	bad.EndDate = NewDate(2024, 12, 31)
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for end date before start date")
	}
}

func TestSavingsGoalValidate(t *testing.T) {
	good := SavingsGoal{Name: "new aircon", Target: Money{Cents: 3000000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid goal, got %v", err)
	}
	if err := (SavingsGoal{Target: Money{Cents: 100}}).Validate(); err != ErrEmptyName {
		t.Fatal("expected ErrEmptyName for unnamed goal")
	}
	if err := (SavingsGoal{Name: "x", Target: Money{Cents: 0}}).Validate(); err == nil {
		t.Fatal("expected error for zero target")
	}
}

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"0.01", 1, false},
		{"100", 10000, false},
		{"", 0, true},
		{"-5", 0, true},
		{"0", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
