package provision

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	applog "github.com/rhexdiaz/pcshop-finance-tracker/internal/log"
)

// Handler is the HTTP surface of the provisioning function: POST with a
// JSON body and a bearer Authorization header, plus the OPTIONS
// preflight browsers send before it. It logs through the request-scoped
// logger installed by applog.Middleware.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	logger := applog.FromContext(r.Context())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
		// handled below
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !h.svc.Configured() {
		logger.Error("Provisioning function not configured")
		writeError(w, http.StatusInternalServerError, "server configuration missing")
		return
	}

	bearer, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.svc.Provision(r.Context(), bearer, req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "Provisioning failed",
				"error", err,
				"target_email", req.Email)
		} else {
			logger.WarnContext(r.Context(), "Provisioning rejected",
				"status", status,
				"reason", err.Error())
		}
		writeError(w, status, err.Error())
		return
	}

	logger.InfoContext(r.Context(), "Principal provisioned",
		"user_id", result.UserID,
		"role", string(result.Role))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"user_id": result.UserID,
	})
}

// statusFor maps the gate errors onto the HTTP taxonomy; the 401-vs-403
// distinction is never collapsed into a generic failure.
func statusFor(err error) int {
	var inputErr *InputError
	var inviteErr *InviteError
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &inputErr), errors.As(err, &inviteErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
