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
	"parking-reservation-backend/internal/facade"
	"parking-reservation-backend/internal/gateway"
)

func main() {
	logger := log.New(os.Stdout, "gatewayd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Services.AuthURL == "" || cfg.Services.SlotURL == "" || cfg.Services.ReservationURL == "" {
		logger.Fatalf("services.auth_url, services.slot_url and services.reservation_url must be configured")
	}

	f := facade.New(cfg.Services.AuthURL, cfg.Services.SlotURL, cfg.Services.ReservationURL, cfg.Services.Timeout)
	router := gateway.NewRouter(gateway.NewHandler(f))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.GatewayPort),
		Handler: router,
	}

	go func() {
		logger.Printf("gateway starting on port %d", cfg.Server.GatewayPort)
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
	logger.Println("gateway stopped gracefully")
}
