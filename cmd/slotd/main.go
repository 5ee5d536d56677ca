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
	"parking-reservation-backend/internal/projection"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/token"
)

func main() {
	logger := log.New(os.Stdout, "slotd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.Projection.Timezone)
	if err != nil {
		logger.Fatalf("invalid projection timezone %q: %v", cfg.Projection.Timezone, err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	slots := store.NewSlotStore(gormDB)
	ledger := store.NewLedger(gormDB)
	accounts := store.NewAccountStore(gormDB)
	verifier := token.NewVerifier(accounts, cfg.Auth.JWTSecret)
	projector := projection.New(slots, ledger, loc)

	handler := api.NewSlotHandler(projector, slots, verifier)
	router := api.NewSlotRouter(cfg, handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.SlotPort),
		Handler: router,
	}

	go func() {
		logger.Printf("slot service starting on port %d", cfg.Server.SlotPort)
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
	logger.Println("slot service stopped gracefully")
}
