package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

// SystemPrincipal marks records written by background workers rather
// than a signed-in user.
const SystemPrincipal = "system"

// BillPoster turns due bills into expense transactions. One Run posts
// every bill that is due at that moment; the bills worker calls it on a
// ticker.
type BillPoster struct {
	storage      *storage.SQLiteRepository
	transactions *TransactionService
}

func NewBillPoster(storage *storage.SQLiteRepository, transactions *TransactionService) *BillPoster {
	return &BillPoster{storage: storage, transactions: transactions}
}

// Run posts every active bill that is due. A failure on one bill is
// logged and the rest still post; the first error is returned so the
// caller can surface it.
func (p *BillPoster) Run(ctx context.Context, now time.Time) (posted int, err error) {
	bills, listErr := p.storage.ListActiveBills(ctx, now)
	if listErr != nil {
		return 0, listErr
	}

	var firstErr error
	for _, state := range bills {
		due, checkErr := p.isDue(state, now)
		if checkErr != nil {
			slog.ErrorContext(ctx, "Failed to check bill dueness",
				"bill_id", state.Bill.ID, "error", checkErr)
			if firstErr == nil {
				firstErr = checkErr
			}
			continue
		}
		if !due {
			continue
		}

		if postErr := p.post(ctx, state.Bill, now); postErr != nil {
			slog.ErrorContext(ctx, "Failed to post due bill",
				"bill_id", state.Bill.ID, "error", postErr)
			if firstErr == nil {
				firstErr = postErr
			}
			continue
		}
		posted++
	}
	return posted, firstErr
}

func (p *BillPoster) isDue(state storage.BillState, now time.Time) (bool, error) {
	checker, err := CheckerFor(state.Bill.Every)
	if err != nil {
		return false, err
	}
	return checker.IsDue(state.LastPosted, now, state.Bill.StartDate), nil
}

func (p *BillPoster) post(ctx context.Context, bill core.Bill, now time.Time) error {
	t := core.Transaction{
		Kind:        core.Expense,
		Date:        core.NewDate(now.Year(), int(now.Month()), now.Day()),
		Description: bill.Description,
		Amount:      bill.Amount,
		Category:    bill.Category,
		CreatedBy:   SystemPrincipal,
	}
	id, err := p.transactions.Create(ctx, t)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Posted recurring bill",
		"bill_id", bill.ID, "transaction_id", id, "amount_cents", bill.Amount.Cents)

	return p.storage.UpdateBillLastPosted(ctx, bill.ID, now)
}
