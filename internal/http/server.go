// Package http serves the finance tracker JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/cache"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/middleware/ratelimit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/middleware/trace"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/services"
)

type Server struct {
	http.Server

	auth         *Authenticator
	transactions *services.TransactionService
	bills        *services.BillService
	savings      *services.SavingsService
	reports      *services.ReportService
	auditor      *audit.Recorder

	limiter      *ratelimit.Limiter
	summaryCache *cache.LRUCache[core.MonthSummary]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(
	addr string,
	auth *Authenticator,
	transactions *services.TransactionService,
	bills *services.BillService,
	savings *services.SavingsService,
	reports *services.ReportService,
	auditor *audit.Recorder,
) *Server {
	mux := http.NewServeMux()
	tracer := trace.NewMiddleware()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           tracer.Middleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		auth:         auth,
		transactions: transactions,
		bills:        bills,
		savings:      savings,
		reports:      reports,
		auditor:      auditor,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache: cache.NewLRUCache[core.MonthSummary](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/me", s.withCommon(auth.withAuth(s.handleMe)))
	mux.HandleFunc("/api/transactions", s.withCommon(auth.withAuth(s.handleTransactions)))
	mux.HandleFunc("/api/transactions/", s.withCommon(auth.withAuth(s.handleTransactionByID)))
	mux.HandleFunc("/api/bills", s.withCommon(auth.withAuth(s.handleBills)))
	mux.HandleFunc("/api/bills/", s.withCommon(auth.withAuth(s.handleBillByID)))
	mux.HandleFunc("/api/savings-goals", s.withCommon(auth.withAuth(s.handleSavingsGoals)))
	mux.HandleFunc("/api/savings-goals/", s.withCommon(auth.withAuth(s.handleSavingsGoalByID)))
	mux.HandleFunc("/api/reports/monthly", s.withCommon(auth.withAuth(s.handleMonthlyReport)))
	mux.HandleFunc("/api/audit", s.withCommon(auth.withAuth(s.handleAuditLog)))

	return s
}

// withCommon adds security headers and rate limiting to a handler.
// Mutating methods count against the per-client limit.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := clientIP(r)

		if r.Method != http.MethodGet && !s.limiter.Allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown stops the background cleanup routines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
