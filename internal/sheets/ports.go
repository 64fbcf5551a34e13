package sheets

import (
	"context"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

// Ports for outbound export adapters.
type (
	// TransactionAppender exports one transaction as a spreadsheet row.
	TransactionAppender interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// TransactionRemover clears the exported row for a deleted transaction.
	TransactionRemover interface {
		Remove(ctx context.Context, id int64) error
	}

	// SummaryWriter exports a monthly profit summary.
	SummaryWriter interface {
		WriteMonthSummary(ctx context.Context, s core.MonthSummary) error
	}
)
