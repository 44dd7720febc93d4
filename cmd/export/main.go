// Command export copies one user's transactions to a Google
// spreadsheet, replacing any previous export.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"caixa/internal/config"
	"caixa/internal/export"
	"caixa/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	userID := flag.String("user", "", "id of the user whose entries are exported")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall export timeout")
	flag.Parse()

	if *userID == "" {
		logger.Error("Missing required flag", "flag", "user")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration invalid", "error", err)
		os.Exit(1)
	}

	db, err := store.NewSQLite(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	exporter, err := export.New(ctx, cfg, db)
	if err != nil {
		logger.Error("Failed to initialize exporter", "error", err)
		os.Exit(1)
	}

	rows, err := exporter.ExportUser(ctx, *userID)
	if err != nil {
		logger.Error("Export failed", "error", err, "user_id", *userID)
		os.Exit(1)
	}

	logger.Info("Export complete", "user_id", *userID, "rows", rows,
		"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
}
