package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/amqp"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/config"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/identity"
	applog "github.com/rhexdiaz/pcshop-finance-tracker/internal/log"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/provision"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting provisioning function")

	cfg := config.Load()
	if err := cfg.ValidateProvisioner(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	identityClient := identity.NewClient(cfg.IdentityBaseURL, cfg.ServiceRoleKey)

	// AMQP is optional here: without it, a failed profile upsert after a
	// successful invite simply has no reconcile message and must be
	// repaired by re-provisioning.
	var publisher provision.ReconcilePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPReconcileQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without reconcile queue", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - failed profile upserts will not be queued for repair")
	}

	recorder := audit.NewRecorder(sqliteRepo)
	svc := provision.NewService(identityClient, sqliteRepo, publisher, recorder, cfg.InviteRedirectURL)
	handler := provision.NewHandler(svc)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	provLogger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentProvision)
	srv := &http.Server{
		Addr:              ":" + cfg.ProvisionerPort,
		Handler:           applog.Middleware(provLogger)(mux),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Listening", "port", cfg.ProvisionerPort, "identity", cfg.IdentityBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.ProvisionerPort)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Provisioning function stopped gracefully")
}
