package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	accountrepo "rms-auth-service/internal/account/repository"
	authhandler "rms-auth-service/internal/auth/handler"
	authservice "rms-auth-service/internal/auth/service"
	"rms-auth-service/internal/config"
	"rms-auth-service/internal/db"
	policyengine "rms-auth-service/internal/policy/engine"
	"rms-auth-service/internal/security"
	"rms-auth-service/internal/server"
	"rms-auth-service/internal/telemetry/otel"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "rms-auth-service")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	tokens, err := security.NewTokenProvider([]byte(cfg.SecretKey), "rms-auth", cfg.SessionTTL())
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	evaluator, err := policyengine.NewOPAEvaluator()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	accounts := accountrepo.NewPostgresRepository(conn)
	svc := authservice.NewAuthService(accounts, hasher, tokens)
	handlers := authhandler.NewAuthHandlers(svc, evaluator, log)

	router := server.NewRouter(server.Deps{
		Auth:   handlers,
		Tokens: tokens,
		Log:    log,
		DB:     conn,
		Policy: evaluator,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	log.Info("HTTP server stopped")
}
