// Package identity is the HTTP client for the external identity
// provider (a GoTrue-style auth service). It is the only place that
// holds the elevated service-role key; the key is sent as a request
// header and never appears in any value returned to callers.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an authenticated principal as reported by the identity provider.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"-"`
}

// APIError is a non-2xx response from the identity provider, carrying
// the provider's own message so callers can surface it verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL        string
	serviceRoleKey string
	httpClient     *http.Client
}

func NewClient(baseURL, serviceRoleKey string) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		serviceRoleKey: serviceRoleKey,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WellFormedToken reports whether s parses as a JWT. It does not verify
// the signature; it exists so malformed credentials can be rejected
// before any network call is made.
func WellFormedToken(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(s, jwt.MapClaims{})
	return err == nil
}

// UserFromToken exchanges an access token for the principal it belongs
// to. The exchange happens at the identity provider, so a forged or
// expired token fails here regardless of what its claims say.
func (c *Client) UserFromToken(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	return decodeUser(resp.Body)
}

// InviteByEmail invites or re-invites a user. Re-inviting an unconfirmed
// email re-sends the invite; inviting an already-confirmed email fails
// with the provider's message.
func (c *Client) InviteByEmail(ctx context.Context, email, fullName, redirectTo string) (*User, error) {
	payload := map[string]any{
		"email": email,
		"data":  map[string]string{"full_name": fullName},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal invite payload: %w", err)
	}

	inviteURL := c.baseURL + "/auth/v1/invite"
	if redirectTo != "" {
		inviteURL += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inviteURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build invite request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
	req.Header.Set("apikey", c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invite user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	return decodeUser(resp.Body)
}

// CreateUser creates a confirmed user directly with a password instead
// of sending an invite. Used when the administrator supplies an initial
// password for the new account.
func (c *Client) CreateUser(ctx context.Context, email, password, fullName string) (*User, error) {
	payload := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"full_name": fullName},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/admin/users", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
	req.Header.Set("apikey", c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	return decodeUser(resp.Body)
}

func decodeUser(r io.Reader) (*User, error) {
	var raw struct {
		ID           string            `json:"id"`
		Email        string            `json:"email"`
		UserMetadata map[string]string `json:"user_metadata"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("identity provider returned no user id")
	}
	return &User{
		ID:       raw.ID,
		Email:    raw.Email,
		FullName: raw.UserMetadata["full_name"],
	}, nil
}

// readErrorMessage pulls the human message out of the provider's error
// body, trying the field names the provider is known to use.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return "no error details"
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"msg", "message", "error_description", "error"} {
			if v, ok := parsed[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return strings.TrimSpace(string(body))
}
