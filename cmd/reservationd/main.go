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

	"github.com/SherClockHolmes/webpush-go"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/api"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/db"
	"parking-reservation-backend/internal/notification"
	"parking-reservation-backend/internal/store"
	"parking-reservation-backend/internal/sweeper"
	"parking-reservation-backend/internal/token"
)

func main() {
	logger := log.New(os.Stdout, "reservationd ", log.LstdFlags)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slots := store.NewSlotStore(gormDB)
	ledger := store.NewLedger(gormDB)
	accounts := store.NewAccountStore(gormDB)
	verifier := token.NewVerifier(accounts, cfg.Auth.JWTSecret)
	guard := booking.NewGuard(ledger, slots)

	// Web push is optional; without VAPID keys the service runs with
	// subscriptions and availability notifications disabled.
	var pool *notification.WorkerPool
	var subs *api.SubscriptionHandler
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions := webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
		pool.Start(ctx)
		subs = api.NewSubscriptionHandler(gormDB, cfg.Push.PublicKey)
		logger.Printf("notification worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured, push notifications disabled")
	}

	if cfg.Sweeper.Enabled {
		var dispatcher sweeper.Dispatcher
		if pool != nil {
			dispatcher = pool
		}
		sweep := sweeper.New(ledger, dispatcher, loc, cfg.Sweeper.Interval)
		go sweep.Run(ctx)
		logger.Printf("completion sweeper running every %s", cfg.Sweeper.Interval)
	}

	handler := api.NewReservationHandler(guard, ledger, verifier, pool)
	router := api.NewReservationRouter(cfg, handler, subs)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.ReservationPort),
		Handler: router,
	}

	go func() {
		logger.Printf("reservation service starting on port %d", cfg.Server.ReservationPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	logger.Println("reservation service stopped gracefully")
}
