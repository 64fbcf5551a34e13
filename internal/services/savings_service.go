package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

// SavingsService manages savings goals and contributions against them.
type SavingsService struct {
	storage  *storage.SQLiteRepository
	recorder *audit.Recorder
}

func NewSavingsService(storage *storage.SQLiteRepository, recorder *audit.Recorder) *SavingsService {
	return &SavingsService{storage: storage, recorder: recorder}
}

func (s *SavingsService) Create(ctx context.Context, g core.SavingsGoal, principalID string) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.CreateSavingsGoal(ctx, g)
	if err != nil {
		return 0, fmt.Errorf("save savings goal: %w", err)
	}
	s.recorder.Record(ctx, principalID, audit.ActionCreate, "savings_goal",
		strconv.FormatInt(id, 10), audit.StatusOK, g.Name)
	return id, nil
}

func (s *SavingsService) List(ctx context.Context) ([]core.SavingsGoal, error) {
	return s.storage.ListSavingsGoals(ctx)
}

// Contribute moves deltaCents into a goal. Negative deltas withdraw; the
// stored balance never drops below zero.
func (s *SavingsService) Contribute(ctx context.Context, id int64, deltaCents int64, principalID string) error {
	if deltaCents == 0 {
		return fmt.Errorf("%w: contribution must be non-zero", core.ErrInvalidAmount)
	}
	if err := s.storage.AddToSavingsGoal(ctx, id, deltaCents); err != nil {
		return err
	}
	s.recorder.Record(ctx, principalID, audit.ActionUpdate, "savings_goal",
		strconv.FormatInt(id, 10), audit.StatusOK, strconv.FormatInt(deltaCents, 10))
	return nil
}

func (s *SavingsService) Delete(ctx context.Context, id int64, principalID string) error {
	if err := s.storage.DeleteSavingsGoal(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, principalID, audit.ActionDelete, "savings_goal",
		strconv.FormatInt(id, 10), audit.StatusOK, "")
	return nil
}
