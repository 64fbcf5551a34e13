package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/session"
)

type categoryAmountResponse struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type monthSummaryResponse struct {
	Year          int                      `json:"year"`
	Month         int                      `json:"month"`
	IncomeCents   int64                    `json:"income_cents"`
	Income        string                   `json:"income"`
	ExpensesCents int64                    `json:"expenses_cents"`
	Expenses      string                   `json:"expenses"`
	NetCents      int64                    `json:"net_cents"`
	Net           string                   `json:"net"`
	ByCategory    []categoryAmountResponse `json:"by_category"`
}

func toMonthSummaryResponse(s core.MonthSummary) monthSummaryResponse {
	resp := monthSummaryResponse{
		Year:          s.Year,
		Month:         s.Month,
		IncomeCents:   s.Income.Cents,
		Income:        formatPesos(s.Income.Cents),
		ExpensesCents: s.Expenses.Cents,
		Expenses:      formatPesos(s.Expenses.Cents),
		NetCents:      s.Net.Cents,
		Net:           formatPesos(s.Net.Cents),
		ByCategory:    make([]categoryAmountResponse, 0, len(s.ByCategory)),
	}
	for _, ca := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{
			Name:        ca.Name,
			AmountCents: ca.Amount.Cents,
			Amount:      formatPesos(ca.Amount.Cents),
		})
	}
	return resp
}

func summaryCacheKey(year, month int) string {
	return fmt.Sprintf("summary_%d_%d", year, month)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireProvisioned(w, snap) {
		return
	}

	year, month := parseYearMonth(r)
	key := summaryCacheKey(year, month)

	if cached, ok := s.summaryCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "year", year, "month", month)
		writeJSON(w, http.StatusOK, toMonthSummaryResponse(cached))
		return
	}

	summary, err := s.reports.Monthly(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, toMonthSummaryResponse(summary))
}

// handleMe reports the caller's resolved role and derived permission
// booleans. Clients branch on these, never on the raw role.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := map[string]any{
		"user_id":        snap.PrincipalID,
		"provisioned":    snap.Provisioned,
		"can_read":       snap.Capabilities.Read,
		"can_write":      snap.Capabilities.CanWrite(),
		"can_administer": snap.Capabilities.CanAdminister(),
	}
	if snap.Profile != nil {
		resp["role"] = string(snap.Profile.Role)
		resp["full_name"] = snap.Profile.FullName
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireProvisioned(w, snap) {
		return
	}
	if !snap.Capabilities.CanAdminister() {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	entries, err := s.auditor.List(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list audit entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	type auditResponse struct {
		ID          string `json:"id"`
		PrincipalID string `json:"principal_id"`
		Action      string `json:"action"`
		Entity      string `json:"entity"`
		EntityID    string `json:"entity_id"`
		Status      string `json:"status"`
		Detail      string `json:"detail,omitempty"`
		CreatedAt   string `json:"created_at"`
	}
	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			ID:          e.ID,
			PrincipalID: e.PrincipalID,
			Action:      e.Action,
			Entity:      e.Entity,
			EntityID:    e.EntityID,
			Status:      e.Status,
			Detail:      e.Detail,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
