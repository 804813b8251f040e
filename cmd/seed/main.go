// seed bootstraps the initial admin account so the register endpoint has a
// caller that can use it. Idempotent: skips the insert if the admin name
// already exists.
package main

import (
	"context"
	"log"
	"os"

	"rms-auth-service/internal/account/domain"
	"rms-auth-service/internal/account/repository"
	"rms-auth-service/internal/config"
	"rms-auth-service/internal/db"
	"rms-auth-service/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.AdminName == "" || cfg.AdminPassword == "" {
		log.Fatal("ADMIN_NAME and ADMIN_PASSWORD must be set to seed the admin account")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	accounts := repository.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := accounts.GetByName(ctx, cfg.AdminName)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", cfg.AdminName)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(cfg.AdminPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin := &domain.Account{
		Name:         cfg.AdminName,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		Status:       domain.StatusEnabled,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}

	log.Printf("Seed completed successfully. Admin account %q created.", cfg.AdminName)
}
