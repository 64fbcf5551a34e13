package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/session"
)

var errNoBearer = errors.New("missing or malformed bearer token")

// Authenticator verifies bearer tokens locally and resolves the
// caller's profile into a capability snapshot for each request.
type Authenticator struct {
	secret   []byte
	profiles session.ProfileStore
}

func NewAuthenticator(secret string, profiles session.ProfileStore) *Authenticator {
	return &Authenticator{secret: []byte(secret), profiles: profiles}
}

// principalFromRequest verifies the bearer token and returns its
// subject claim.
func (a *Authenticator) principalFromRequest(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", errNoBearer
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if tokenStr == "" {
		return "", errNoBearer
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// authedHandler is a handler that runs with a resolved session.
type authedHandler func(w http.ResponseWriter, r *http.Request, snap session.Snapshot)

// withAuth authenticates the request and resolves capabilities before
// invoking the handler. Resolution is fail-closed: a profile lookup
// failure yields 503, never a guessed role.
func (a *Authenticator) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, err := a.principalFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		snap := session.Resolve(r.Context(), a.profiles, principalID)
		if snap.Err != nil {
			writeError(w, http.StatusServiceUnavailable, "profile lookup failed, retry")
			return
		}

		next(w, r, snap)
	}
}

// requireProvisioned rejects principals that authenticated but have no
// profile row yet.
func requireProvisioned(w http.ResponseWriter, snap session.Snapshot) bool {
	if !snap.Provisioned {
		writeError(w, http.StatusForbidden, "account not provisioned")
		return false
	}
	return true
}
