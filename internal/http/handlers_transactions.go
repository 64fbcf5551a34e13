package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/services"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/session"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

type createTransactionRequest struct {
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	CreatedBy   string `json:"created_by"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Date:        t.Date.Format("2006-01-02"),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Amount:      formatPesos(t.Amount.Cents),
		Category:    t.Category,
		CreatedBy:   t.CreatedBy,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r, snap)
	case http.MethodPost:
		s.createTransaction(w, r, snap)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}

	year, month := parseYearMonth(r)
	items, err := s.transactions.List(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions",
			"year", year, "month", month, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":         year,
		"month":        month,
		"transactions": out,
	})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}
	if !snap.Capabilities.CanWrite() {
		writeError(w, http.StatusForbidden, "write access required")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	t := core.Transaction{
		Kind:        core.TransactionKind(req.Kind),
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
		CreatedBy:   snap.PrincipalID,
	}

	if err := t.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction",
			"description", t.Description, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	// The month's cached summary is stale now.
	s.summaryCache.Delete(summaryCacheKey(date.Year(), date.Month()))

	t.ID = id
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireProvisioned(w, snap) {
		return
	}
	if !snap.Capabilities.CanWrite() {
		writeError(w, http.StatusForbidden, "write access required")
		return
	}

	id, err := pathID(r.URL.Path, "/api/transactions/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	err = s.transactions.Delete(r.Context(), id, snap.PrincipalID, snap.Capabilities)
	switch {
	case errors.Is(err, storage.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, services.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "you can only delete your own transactions")
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
