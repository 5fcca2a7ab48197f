package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/config"
	"github.com/safedeal/backend/internal/db"
	"github.com/safedeal/backend/internal/events"
	apphttp "github.com/safedeal/backend/internal/http"
	"github.com/safedeal/backend/internal/http/handlers"
	"github.com/safedeal/backend/internal/ledger"
	"github.com/safedeal/backend/internal/repositories"
	"github.com/safedeal/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	accountRepo := repositories.NewAccountRepo(pool)
	orderRepo := repositories.NewOrderRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	bus := events.NewRedisBus(rdb, log)

	// Ledger registry over durable accounts, wall-clock seconds
	registry := ledger.NewRegistry(accountRepo, func() uint64 {
		return uint64(time.Now().Unix())
	})

	// Services
	escrowService := services.NewEscrowService(registry, accountRepo, orderRepo, auditRepo, bus, cfg, log)
	if err := escrowService.Restore(ctx); err != nil {
		log.Fatal("failed to restore ledgers", zap.Error(err))
	}

	// Refund sweeper runs in-process: the ledgers live in this process's
	// memory, so a separate worker binary would not see them.
	sweeper := services.NewRefundSweeper(registry, escrowService, cfg.SweepInterval, log)
	sweeper.Start(ctx)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, accountRepo, cfg, log)
	accountHandler := handlers.NewAccountHandler(escrowService, userRepo, log)
	orderHandler := handlers.NewOrderHandler(escrowService, cfg, log)
	wsHub := handlers.NewWSHub(cfg, bus, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, accountHandler, orderHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("tenant", cfg.DefaultTenant))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
