package services

import (
	"context"
	"fmt"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

// ReportService computes monthly summaries from stored transactions.
type ReportService struct {
	storage *storage.SQLiteRepository
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{storage: storage}
}

// Monthly aggregates the given month: income, expenses, net, and
// expenses grouped by category.
func (s *ReportService) Monthly(ctx context.Context, year, month int) (core.MonthSummary, error) {
	if year < 1970 || year > 9999 {
		return core.MonthSummary{}, fmt.Errorf("%w: year %d", core.ErrInvalidMonth, year)
	}
	if month < 1 || month > 12 {
		return core.MonthSummary{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	return s.storage.MonthSummary(ctx, year, month)
}
