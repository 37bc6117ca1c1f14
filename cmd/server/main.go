package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go-hedgevault/internal/app"
	"go-hedgevault/internal/config"
	"go-hedgevault/internal/db"
	"go-hedgevault/internal/handlers"
	"go-hedgevault/internal/router"
)

func main() {
	log.Println("🚀 Starting HedgeVault server...")

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	if config.AppConfig.Database.DSN != "" {
		if err := db.InitDB(); err != nil {
			log.Fatalf("❌ Failed to initialize database: %v", err)
		}
	} else {
		log.Println("⚠️ No database DSN configured, running without the index tables")
	}

	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize service container: %v", err)
	}
	defer container.Shutdown()

	container.BatchScheduler.Start()

	h := router.Handlers{
		Vault:     handlers.NewVaultHandler(container.VaultService, container.WithdrawalRepo, logger),
		Hedge:     handlers.NewHedgeHandler(container.HedgeService, container.RelayerToken, container.CommitmentRepo, container.BatchRepo, logger),
		Admin:     handlers.NewAdminHandler(container.VaultService, container.HedgeService, container.Authority, container.AdminToken, container.GuardianToken, container.NotificationRepo, logger),
		AdminAuth: handlers.NewAdminAuthHandler(),
		Push:      container.WebSocketPushService,
	}
	engine := router.SetupRouter(h, nil, logger)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("✅ HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}
