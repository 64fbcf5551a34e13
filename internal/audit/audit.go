// Package audit records who did what. Every mutation and every
// provisioning attempt, granted or denied, leaves an entry.
package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

const (
	StatusOK     = "ok"
	StatusDenied = "denied"
	StatusError  = "error"
)

const (
	ActionCreate    = "create"
	ActionDelete    = "delete"
	ActionUpdate    = "update"
	ActionProvision = "provision"
)

// Store is the persistence surface the recorder needs.
type Store interface {
	InsertAuditEntry(ctx context.Context, e storage.AuditEntry) error
	ListAuditEntries(ctx context.Context, limit int) ([]storage.AuditEntry, error)
}

type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record writes one audit entry. A failed audit write is logged but does
// not fail the operation being audited.
func (r *Recorder) Record(ctx context.Context, principalID, action, entity, entityID, status, detail string) {
	if r == nil || r.store == nil {
		return
	}
	entry := storage.AuditEntry{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		Status:      status,
		Detail:      detail,
	}
	if err := r.store.InsertAuditEntry(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "Failed to write audit entry",
			"principal_id", principalID,
			"action", action,
			"status", status,
			"error", err)
	}
}

// List returns recent entries, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]storage.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.store.ListAuditEntries(ctx, limit)
}
