package provision

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "github.com/rhexdiaz/pcshop-finance-tracker/internal/log"
)

func newTestHandler(t *testing.T) (*Handler, *fakeProfiles, string, string) {
	t.Helper()
	svc, _, profiles, _, adminToken, editorToken := newFixture(t)
	h := NewHandler(svc)
	return h, profiles, adminToken, editorToken
}

func doRequest(h *Handler, method, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentProvision)
	applog.Middleware(logger)(h).ServeHTTP(w, req)
	return w
}

func TestHandlerOptionsPreflight(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	w := doRequest(h, http.MethodOptions, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("OPTIONS status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "authorization") {
		t.Errorf("Allow-Headers = %q, must include authorization", got)
	}
}

func TestHandlerRejectsOtherMethods(t *testing.T) {
	h, _, adminToken, _ := newTestHandler(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := doRequest(h, method, adminToken, "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, w.Code)
		}
	}
}

func TestHandlerMissingBearerIs401(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	w := doRequest(h, http.MethodPost, "", `{"email":"x@shop.com","fullName":"X"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] == "" {
		t.Fatal("401 must carry an error message")
	}
}

func TestHandlerNonAdminIs403(t *testing.T) {
	h, profiles, _, editorToken := newTestHandler(t)

	w := doRequest(h, http.MethodPost, editorToken, `{"email":"newuser@shop.com","fullName":"Juan Dela Cruz","role":"editor"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "Forbidden (admin only)" {
		t.Fatalf("error = %q, want %q", body["error"], "Forbidden (admin only)")
	}
	if len(profiles.upserts) != 0 {
		t.Fatal("403 must not create a profile")
	}
}

func TestHandlerAdminInviteSucceeds(t *testing.T) {
	h, profiles, adminToken, _ := newTestHandler(t)

	w := doRequest(h, http.MethodPost, adminToken, `{"email":"newuser@shop.com","fullName":"Juan Dela Cruz","role":"editor"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	var body struct {
		OK     bool   `json:"ok"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.OK || body.UserID == "" {
		t.Fatalf("unexpected body: %+v", body)
	}

	stored := profiles.profiles[body.UserID]
	if string(stored.Role) != "editor" {
		t.Fatalf("stored role = %q, want editor", stored.Role)
	}
}

func TestHandlerInvalidJSONIs400(t *testing.T) {
	h, _, adminToken, _ := newTestHandler(t)

	w := doRequest(h, http.MethodPost, adminToken, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandlerMissingFieldsIs400(t *testing.T) {
	h, _, adminToken, _ := newTestHandler(t)

	w := doRequest(h, http.MethodPost, adminToken, `{"email":"","fullName":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandlerUnconfiguredIs500(t *testing.T) {
	h := NewHandler(NewService(nil, nil, nil, nil, ""))

	w := doRequest(h, http.MethodPost, "whatever", `{"email":"x@shop.com","fullName":"X"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
