package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/amqp"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

// ErrNotAllowed rejects an operation the caller's capabilities do not
// cover, such as an editor deleting someone else's record.
var ErrNotAllowed = errors.New("not allowed")

// TransactionService orchestrates transaction writes across SQLite, the
// change feed, and the audit log.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	recorder   *audit.Recorder
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, recorder *audit.Recorder) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
		recorder:   recorder,
	}
}

// Create saves a transaction locally and publishes a change event. The
// local save is authoritative; a publish failure is logged, not fatal.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishChanged(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"id", id, "error", err)
		// Don't fail the request - transaction is saved locally
	}

	s.recorder.Record(ctx, t.CreatedBy, audit.ActionCreate, "transaction",
		strconv.FormatInt(id, 10), audit.StatusOK,
		string(t.Kind)+" "+t.Description)

	return id, nil
}

// Delete soft deletes a transaction. Editors may delete only their own
// records; the full delete capability covers any record.
func (s *TransactionService) Delete(ctx context.Context, id int64, principalID string, caps core.Capabilities) error {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	if !caps.Delete && !(caps.DeleteOwn && t.CreatedBy == principalID) {
		s.recorder.Record(ctx, principalID, audit.ActionDelete, "transaction",
			strconv.FormatInt(id, 10), audit.StatusDenied, "not record owner")
		return ErrNotAllowed
	}

	if err := s.storage.SoftDeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}

	if err := s.publishDeleted(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event",
			"id", id, "error", err)
		// Don't fail the request - transaction is deleted locally
	}

	s.recorder.Record(ctx, principalID, audit.ActionDelete, "transaction",
		strconv.FormatInt(id, 10), audit.StatusOK, "")

	return nil
}

// List returns the month's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, year, month int) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, year, month)
}

func (s *TransactionService) publishChanged(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change event")
		return nil
	}
	return s.amqpClient.PublishTransactionChanged(ctx, id, version)
}

func (s *TransactionService) publishDeleted(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete event")
		return nil
	}
	return s.amqpClient.PublishTransactionDeleted(ctx, id)
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
