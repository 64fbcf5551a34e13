package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/services"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// newTestServer seeds one profile per role and returns the server plus
// its backing repository.
func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	for _, p := range []core.Profile{
		{ID: "u-viewer", FullName: "Ana Reyes", Role: core.RoleViewer},
		{ID: "u-editor", FullName: "Juan Dela Cruz", Role: core.RoleEditor},
		{ID: "u-admin", FullName: "Maria Santos", Role: core.RoleAdmin},
	} {
		if err := repo.UpsertProfile(ctx, p); err != nil {
			t.Fatalf("seed profile %s: %v", p.ID, err)
		}
	}

	recorder := audit.NewRecorder(repo)
	transactions := services.NewTransactionService(repo, nil, recorder)
	bills := services.NewBillService(repo, recorder)
	savings := services.NewSavingsService(repo, recorder)
	reports := services.NewReportService(repo)
	auth := NewAuthenticator(testSecret, repo)

	srv := NewServer(":0", auth, transactions, bills, savings, reports, recorder)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	return srv, repo
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions", "not-a-jwt", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rr.Code)
	}
}

func TestUnprovisionedPrincipal(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signedToken(t, "u-stranger")

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("unprovisioned list status = %d, want 403", rr.Code)
	}

	// /api/me still answers, with everything switched off.
	rr = doJSON(t, srv, http.MethodGet, "/api/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("/api/me status = %d, want 200", rr.Code)
	}
	var me map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode /api/me: %v", err)
	}
	if me["provisioned"] != false || me["can_read"] != false || me["can_write"] != false {
		t.Errorf("unprovisioned /api/me = %v, want all capabilities off", me)
	}
}

func TestViewerCannotWrite(t *testing.T) {
	srv, _ := newTestServer(t)
	token := signedToken(t, "u-viewer")

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions", token, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("viewer list status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", token, createTransactionRequest{
		Kind: "expense", Date: "2026-03-10", Description: "toner", Amount: "500.00", Category: "supplies",
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("viewer create status = %d, want 403", rr.Code)
	}
}

func TestEditorTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	editor := signedToken(t, "u-editor")
	admin := signedToken(t, "u-admin")

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", editor, createTransactionRequest{
		Kind:        "income",
		Date:        "2026-03-10",
		Description: "Desktop build for walk-in",
		Amount:      "18500.00",
		Category:    "builds",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.AmountCents != 1850000 {
		t.Errorf("AmountCents = %d, want 1850000", created.AmountCents)
	}
	if created.CreatedBy != "u-editor" {
		t.Errorf("CreatedBy = %q, want u-editor", created.CreatedBy)
	}

	// Another editor's record: admin may delete it, a different editor may not.
	adminOwned := doJSON(t, srv, http.MethodPost, "/api/transactions", admin, createTransactionRequest{
		Kind: "expense", Date: "2026-03-11", Description: "GPU restock", Amount: "42000.00", Category: "inventory",
	})
	if adminOwned.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d", adminOwned.Code)
	}
	var adminTx transactionResponse
	_ = json.Unmarshal(adminOwned.Body.Bytes(), &adminTx)

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+itoa(adminTx.ID), editor, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("editor deleting admin's record status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+itoa(created.ID), editor, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("editor deleting own record status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+itoa(adminTx.ID), admin, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin delete status = %d, want 200", rr.Code)
	}
}

func TestMonthlyReport(t *testing.T) {
	srv, _ := newTestServer(t)
	editor := signedToken(t, "u-editor")
	viewer := signedToken(t, "u-viewer")

	for _, req := range []createTransactionRequest{
		{Kind: "income", Date: "2026-04-02", Description: "Repairs", Amount: "3000.00", Category: "repairs"},
		{Kind: "expense", Date: "2026-04-05", Description: "Thermal paste", Amount: "450.50", Category: "supplies"},
	} {
		rr := doJSON(t, srv, http.MethodPost, "/api/transactions", editor, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/reports/monthly?year=2026&month=4", viewer, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status = %d", rr.Code)
	}
	var report monthSummaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.IncomeCents != 300000 || report.ExpensesCents != 45050 {
		t.Errorf("report = %+v, want income 300000 expenses 45050", report)
	}
	if report.NetCents != 254950 {
		t.Errorf("NetCents = %d, want 254950", report.NetCents)
	}
	if len(report.ByCategory) != 1 || report.ByCategory[0].Name != "supplies" {
		t.Errorf("ByCategory = %+v, want one supplies entry", report.ByCategory)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/reports/monthly?year=2026&month=13", viewer, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("month 13 status = %d, want 422", rr.Code)
	}
}

func TestAuditLogAdminOnly(t *testing.T) {
	srv, _ := newTestServer(t)
	editor := signedToken(t, "u-editor")
	admin := signedToken(t, "u-admin")

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", editor, createTransactionRequest{
		Kind: "expense", Date: "2026-03-10", Description: "case fans", Amount: "950.00", Category: "inventory",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed create status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/audit", editor, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("editor audit status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/audit", admin, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin audit status = %d, want 200", rr.Code)
	}
	var resp struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(resp.Entries) == 0 {
		t.Error("audit log should record the seeded create")
	}
}

func TestBillsAndSavingsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	editor := signedToken(t, "u-editor")
	admin := signedToken(t, "u-admin")

	rr := doJSON(t, srv, http.MethodPost, "/api/bills", editor, createBillRequest{
		StartDate: "2026-01-05", Every: "monthly", Description: "Shop rent", Amount: "15000.00", Category: "rent",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create bill status = %d, body %s", rr.Code, rr.Body.String())
	}
	var bill billResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &bill)

	// Deleting a bill takes admin.
	rr = doJSON(t, srv, http.MethodDelete, "/api/bills/"+itoa(bill.ID), editor, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("editor bill delete status = %d, want 403", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, "/api/bills/"+itoa(bill.ID), admin, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin bill delete status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/savings-goals", editor, createGoalRequest{
		Name: "Backup generator", Target: "45000.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal status = %d", rr.Code)
	}
	var goal goalResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &goal)

	rr = doJSON(t, srv, http.MethodPost, "/api/savings-goals/"+itoa(goal.ID)+"/contribute", editor, contributeRequest{Amount: "2500.00"})
	if rr.Code != http.StatusOK {
		t.Fatalf("contribute status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/savings-goals", editor, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list goals status = %d", rr.Code)
	}
	var goals struct {
		Goals []goalResponse `json:"goals"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &goals); err != nil {
		t.Fatalf("decode goals: %v", err)
	}
	if len(goals.Goals) != 1 || goals.Goals[0].SavedCents != 250000 {
		t.Errorf("goals = %+v, want one goal with 250000 saved", goals.Goals)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
