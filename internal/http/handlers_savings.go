package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/session"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

type createGoalRequest struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

type contributeRequest struct {
	// Amount is a signed decimal; negative values withdraw.
	Amount string `json:"amount"`
}

type goalResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TargetCents int64  `json:"target_cents"`
	Target      string `json:"target"`
	SavedCents  int64  `json:"saved_cents"`
	Saved       string `json:"saved"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	return goalResponse{
		ID:          g.ID,
		Name:        g.Name,
		TargetCents: g.Target.Cents,
		Target:      formatPesos(g.Target.Cents),
		SavedCents:  g.Saved.Cents,
		Saved:       formatPesos(g.Saved.Cents),
	}
}

func (s *Server) handleSavingsGoals(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	switch r.Method {
	case http.MethodGet:
		s.listSavingsGoals(w, r, snap)
	case http.MethodPost:
		s.createSavingsGoal(w, r, snap)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listSavingsGoals(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}

	goals, err := s.savings.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list savings goals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list savings goals")
		return
	}

	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": out})
}

func (s *Server) createSavingsGoal(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}
	if !snap.Capabilities.CanWrite() {
		writeError(w, http.StatusForbidden, "write access required")
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid target amount")
		return
	}

	g := core.SavingsGoal{
		Name:   sanitizeInput(req.Name),
		Target: core.Money{Cents: cents},
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.savings.Create(r.Context(), g, snap.PrincipalID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create savings goal",
			"name", g.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save goal")
		return
	}

	g.ID = id
	writeJSON(w, http.StatusCreated, toGoalResponse(g))
}

// handleSavingsGoalByID covers DELETE /api/savings-goals/{id} and
// POST /api/savings-goals/{id}/contribute.
func (s *Server) handleSavingsGoalByID(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if !requireProvisioned(w, snap) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/savings-goals/")
	if strings.HasSuffix(rest, "/contribute") {
		s.contributeToGoal(w, r, snap)
		return
	}

	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !snap.Capabilities.Delete {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	id, err := pathID(r.URL.Path, "/api/savings-goals/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	err = s.savings.Delete(r.Context(), id, snap.PrincipalID)
	switch {
	case errors.Is(err, storage.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, "savings goal not found")
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to delete savings goal", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete goal")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) contributeToGoal(w http.ResponseWriter, r *http.Request, snap session.Snapshot) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !snap.Capabilities.CanWrite() {
		writeError(w, http.StatusForbidden, "write access required")
		return
	}

	idPart := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/savings-goals/"), "/contribute")
	id, err := pathID("/"+idPart, "/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var req contributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	amount := strings.TrimSpace(req.Amount)
	negative := strings.HasPrefix(amount, "-")
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(amount, "-"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	if negative {
		cents = -cents
	}

	err = s.savings.Contribute(r.Context(), id, cents, snap.PrincipalID)
	switch {
	case errors.Is(err, storage.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, "savings goal not found")
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to record contribution", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record contribution")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
