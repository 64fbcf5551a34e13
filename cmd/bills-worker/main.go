package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/amqp"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/audit"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/config"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/services"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting bills-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	// AMQP is optional: posted transactions still land in SQLite and the
	// sync worker's periodic sweep exports them eventually.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPReconcileQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - posted bills will sync via sync-worker")
		}
	} else {
		logger.Info("AMQP disabled - posted bills will not sync to Google Sheets")
	}

	recorder := audit.NewRecorder(sqliteRepo)
	transactions := services.NewTransactionService(sqliteRepo, amqpClient, recorder)
	poster := services.NewBillPoster(sqliteRepo, transactions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring bill poster configured",
		"interval", cfg.BillsInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.BillsInterval)
	defer ticker.Stop()

	// Run initial posting on startup
	logger.Info("Running initial bill posting...")
	if count, err := poster.Run(ctx, time.Now()); err != nil {
		logger.Error("Initial posting failed", "error", err)
	} else {
		logger.Info("Initial posting complete", "transactions_posted", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Posting due recurring bills...")
				count, err := poster.Run(ctx, now)
				if err != nil {
					logger.Error("Periodic posting failed", "error", err)
				} else {
					logger.Info("Periodic posting complete",
						"transactions_posted", count,
						"next_check", now.Add(cfg.BillsInterval).Format("15:04:05"))
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker shutdown complete")
}
