package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/session"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

type createBillRequest struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Every       string `json:"every"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

type billResponse struct {
	ID          int64  `json:"id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Every       string `json:"every"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	LastPosted  string `json:"last_posted,omitempty"`
}

func toBillResponse(state storage.BillState) billResponse {
	b := state.Bill
	resp := billResponse{
		ID:          b.ID,
		StartDate:   b.StartDate.Format("2006-01-02"),
		Every:       string(b.Every),
		Description: b.Description,
		AmountCents: b.Amount.Cents,
		Amount:      formatPesos(b.Amount.Cents),
		Category:    b.Category,
	}
	if !b.EndDate.IsEmpty() {
		resp.EndDate = b.EndDate.Format("2006-01-02")
	}
	if !state.LastPosted.IsZero() {
		resp.LastPosted = state.LastPosted.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	switch r.Method {
	case http.MethodGet:
		s.listBills(w, r, snap)
	case http.MethodPost:
		s.createBill(w, r, snap)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}

	items, err := s.bills.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list bills", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bills")
		return
	}

	out := make([]billResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBillResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": out})
}

func (s *Server) createBill(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}
	if !snap.Capabilities.CanWrite() {
		writeError(w, http.StatusForbidden, "write access required")
		return
	}

	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	var end core.Date
	if req.EndDate != "" {
		end, err = parseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid end_date, expected YYYY-MM-DD")
			return
		}
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	b := core.Bill{
		StartDate:   start,
		EndDate:     end,
		Every:       core.RepetitionTypes(req.Every),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.bills.Create(r.Context(), b, snap.PrincipalID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create bill",
			"description", b.Description, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save bill")
		return
	}

	b.ID = id
	writeJSON(w, http.StatusCreated, toBillResponse(storage.BillState{Bill: b}))
}

func (s *Server) handleBillByID(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireProvisioned(w, snap) {
		return
	}
	// Bills have no owner, so removing one takes the full delete
	// capability.
	if !snap.Capabilities.Delete {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	id, err := pathID(r.URL.Path, "/api/bills/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bill id")
		return
	}

	err = s.bills.Delete(r.Context(), id, snap.PrincipalID)
	switch {
	case errors.Is(err, storage.ErrBillNotFound):
		writeError(w, http.StatusNotFound, "bill not found")
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to delete bill", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete bill")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
