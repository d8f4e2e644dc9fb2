package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"sales_leads_backend/internal/auth/password"
	"sales_leads_backend/internal/users/repository"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/db"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/logger"
)

// Creates the first admin, or resets the password of an existing active user.
// Reads BOOTSTRAP_USERNAME, BOOTSTRAP_EMAIL and BOOTSTRAP_PASSWORD.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting admin bootstrap")

	username := strings.TrimSpace(os.Getenv("BOOTSTRAP_USERNAME"))
	email := strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_EMAIL")))
	plain := os.Getenv("BOOTSTRAP_PASSWORD")
	if username == "" || email == "" || len(plain) < 8 {
		panic("BOOTSTRAP_USERNAME, BOOTSTRAP_EMAIL and a BOOTSTRAP_PASSWORD of at least 8 characters are required")
	}

	hash, err := password.Hash(plain)
	if err != nil {
		panic("failed to hash password: " + err.Error())
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	repo := repository.New(pool, cfg.GetDBAcquireTimeout())

	existing, err := repo.GetByLogin(ctx, username)
	switch {
	case err == nil:
		if err := repo.SetPassword(ctx, existing.ID, hash); err != nil {
			log.Error("failed to reset password", "userId", existing.ID, "error", err)
			panic("failed to reset password: " + err.Error())
		}
		log.Info("password reset", "userId", existing.ID, "username", existing.Username)
		return
	case !errors.Is(err, repository.ErrNotFound):
		log.Error("failed to look up user", "error", err)
		panic("failed to look up user: " + err.Error())
	}

	created, err := repo.Create(ctx, repository.UserFields{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       httpkit.RoleAdmin,
	})
	if errors.Is(err, repository.ErrEmailTaken) {
		log.Error("email belongs to another or deactivated user", "email", email)
		panic("email already taken")
	}
	if err != nil {
		log.Error("failed to create admin", "error", err)
		panic("failed to create admin: " + err.Error())
	}
	log.Info("admin created", "userId", created.ID, "username", created.Username)
}
