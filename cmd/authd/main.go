package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/api"
	"parking-reservation-backend/internal/db"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

func main() {
	logger := log.New(os.Stdout, "authd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret must be configured")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	accounts := store.NewAccountStore(gormDB)
	issuer := token.NewIssuer(accounts, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	verifier := token.NewVerifier(accounts, cfg.Auth.JWTSecret)

	handler := api.NewAuthHandler(issuer, verifier, accounts)
	router := api.NewAuthRouter(cfg, handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.AuthPort),
		Handler: router,
	}

	go func() {
		logger.Printf("auth service starting on port %d", cfg.Server.AuthPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("Shutdown signal received, stopping service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	logger.Println("auth service stopped gracefully")
}
