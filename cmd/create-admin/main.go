// Command create-admin creates an administrator account, or promotes an
// existing account when the e-mail is already registered.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"caixa/internal/auth"
	"caixa/internal/config"
	"caixa/internal/core"
	"caixa/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	name := flag.String("name", "", "display name of the administrator")
	email := flag.String("email", "", "e-mail of the administrator")
	password := flag.String("password", "", "password (min 8 characters, ignored when promoting)")
	flag.Parse()

	if *email == "" {
		logger.Error("Missing required flag", "flag", "email")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	db, err := store.NewSQLite(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	var user core.User
	account, err := db.GetAccountByEmail(ctx, *email)
	switch {
	case err == nil:
		user = core.User{ID: account.ID, Name: account.Name, Email: account.Email}
		logger.Info("Account already exists, promoting", "user_id", user.ID)
	case errors.Is(err, store.ErrNotFound):
		authSvc := auth.NewService(db, db, nil, cfg.JWTSecret, cfg.SessionTTL)
		user, err = authSvc.SignUp(ctx, *name, *email, *password)
		if err != nil {
			logger.Error("Account creation failed", "error", err)
			os.Exit(1)
		}
	default:
		logger.Error("Account lookup failed", "error", err, "email", *email)
		os.Exit(1)
	}

	// The users row always exists by now (signup provisions it), so the
	// role update goes through SetRole; PutUser would leave it as-is.
	if err := db.SetRole(ctx, user.ID, core.RoleAdmin); err != nil {
		logger.Error("Failed to grant admin role", "error", err, "user_id", user.ID)
		os.Exit(1)
	}

	logger.Info("Administrator ready", "user_id", user.ID, "email", user.Email)
}
