// Package memory is an in-memory export target used by tests and by
// local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

type Store struct {
	mu        sync.Mutex
	items     []core.Transaction
	summaries map[string]core.MonthSummary
}

func New() *Store {
	return &Store{summaries: make(map[string]core.MonthSummary)}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Remove drops the transaction with the given id. Removing an unknown
// id is not an error.
func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, t := range s.items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.items = kept
	return nil
}

func (s *Store) WriteMonthSummary(_ context.Context, sum core.MonthSummary) error {
	if sum.Month < 1 || sum.Month > 12 {
		return fmt.Errorf("invalid month: %d", sum.Month)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[fmt.Sprintf("%04d-%02d", sum.Year, sum.Month)] = sum
	return nil
}

// Transactions returns a copy of everything appended so far.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}

// Summary returns the stored summary for a month, if any.
func (s *Store) Summary(year, month int) (core.MonthSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[fmt.Sprintf("%04d-%02d", year, month)]
	return sum, ok
}
