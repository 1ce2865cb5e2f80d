package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sagara39/canteen-kiosk/internal/balance"
	"github.com/Sagara39/canteen-kiosk/internal/cart"
	"github.com/Sagara39/canteen-kiosk/internal/checkout"
	"github.com/Sagara39/canteen-kiosk/internal/config"
	"github.com/Sagara39/canteen-kiosk/internal/httpapi"
	"github.com/Sagara39/canteen-kiosk/internal/ledger"
	"github.com/Sagara39/canteen-kiosk/internal/menu"
	"github.com/Sagara39/canteen-kiosk/internal/publisher"
	"github.com/Sagara39/canteen-kiosk/internal/receipts"
	"github.com/Sagara39/canteen-kiosk/internal/register"
	"github.com/Sagara39/canteen-kiosk/internal/status"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Menu catalog (SQLite, seeded by migration)
	catalog, err := menu.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open menu catalog: %v", err)
	}
	defer catalog.Close()
	if err := catalog.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Fatalf("Failed to migrate menu catalog: %v", err)
	}
	log.Printf("Menu catalog ready at %s", cfg.CatalogDBPath)

	// Ledger (Postgres: profiles, orders, outbox)
	cred := &ledger.Credentials{
		Host:              cfg.PGHost,
		Port:              cfg.PGPort,
		User:              cfg.PGUser,
		Password:          cfg.PGPassword,
		DBName:            cfg.PGDBName,
		MigrationsDirPath: cfg.LedgerMigrationsPath,
	}
	ledgerRepo, err := ledger.NewRepository(cred)
	if err != nil {
		log.Fatalf("Failed to connect to ledger: %v", err)
	}
	defer ledgerRepo.Close()
	if err := ledgerRepo.RunMigrations(cred); err != nil {
		log.Fatalf("Failed to migrate ledger: %v", err)
	}

	// MongoDB (carts, status mailbox, receipts)
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// Redis (cart cache, tap notifications)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// Wiring
	taps := status.NewChannel(mongoDB, redisClient)
	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	cartCache := cart.NewRedisCache(redisClient)
	carts := cart.NewService(cartRepo, cartCache, catalog)
	receiptRepo := receipts.NewMongoRepository(mongoDB)

	checkoutFlow := checkout.NewService(ledgerRepo, carts, taps)
	registerFlow := register.NewService(ledgerRepo, taps)
	balanceFlow := balance.NewService(ledgerRepo, taps)

	// Background pipeline: outbox -> kafka -> receipts
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	poller := publisher.NewOutboxPoller(ledgerRepo, cfg.KafkaBrokers...)
	go poller.Run(bgCtx)

	consumer := receipts.NewConsumer(receiptRepo, cfg.KafkaBrokers...)
	defer consumer.Close()
	go consumer.Run(bgCtx)

	router := httpapi.NewRouter(httpapi.Handlers{
		Menu:     httpapi.NewMenuHandler(catalog),
		Cart:     httpapi.NewCartHandler(carts),
		Checkout: httpapi.NewCheckoutHandler(checkoutFlow),
		Register: httpapi.NewRegisterHandler(registerFlow),
		Balance:  httpapi.NewBalanceHandler(balanceFlow),
		Hardware: httpapi.NewHardwareHandler(taps),
		Receipts: httpapi.NewReceiptsHandler(receiptRepo),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(router, "kiosk"),
	}

	go func() {
		log.Printf("Kiosk service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down kiosk service...")
	bgCancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("kiosk service stopped")
}
