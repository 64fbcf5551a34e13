package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

// BillService manages recurring bill templates.
type BillService struct {
	storage  *storage.SQLiteRepository
	recorder *audit.Recorder
}

func NewBillService(storage *storage.SQLiteRepository, recorder *audit.Recorder) *BillService {
	return &BillService{storage: storage, recorder: recorder}
}

func (s *BillService) Create(ctx context.Context, b core.Bill, principalID string) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.CreateBill(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("save bill: %w", err)
	}
	s.recorder.Record(ctx, principalID, audit.ActionCreate, "bill",
		strconv.FormatInt(id, 10), audit.StatusOK, b.Description)
	return id, nil
}

func (s *BillService) List(ctx context.Context) ([]storage.BillState, error) {
	return s.storage.ListBills(ctx)
}

func (s *BillService) Delete(ctx context.Context, id int64, principalID string) error {
	if err := s.storage.DeleteBill(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, principalID, audit.ActionDelete, "bill",
		strconv.FormatInt(id, 10), audit.StatusOK, "")
	return nil
}
