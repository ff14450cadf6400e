package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/chain"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/config"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/db"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/events"
	apphttp "github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/dto"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/handlers"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories/memory"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	var (
		accounts  repositories.AccountStore
		assets    repositories.AssetStore
		auditRepo repositories.AuditStore
	)
	if cfg.PostgresDSN != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, os.DirFS(cfg.MigrationsDir), log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		accounts = repositories.NewAccountRepo(pool)
		assets = repositories.NewAssetRepo(pool)
		auditRepo = repositories.NewAuditRepo(pool)
	} else {
		accounts = memory.NewAccountStore()
		assets = memory.NewAssetStore()
		auditRepo = memory.NewAuditStore()
	}

	// Events
	var (
		rdb        *redis.Client
		publisher  events.Publisher
		subscriber events.Subscriber
	)
	if cfg.RedisURL != "" {
		client, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		rdb = client
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	} else {
		bus := events.NewLocalBus(log)
		publisher, subscriber = bus, bus
	}

	// Issuer
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	inner, mode, closeIssuer, err := chain.Open(ctx, chain.Options{
		RPCURL:               cfg.BlockchainRPC,
		ChainID:              cfg.ChainID,
		PrivateKey:           cfg.PrivateKey,
		ContractAddress:      cfg.ContractAddress,
		ContractName:         cfg.ContractName,
		ContractSymbol:       cfg.ContractSymbol,
		Simulated:            cfg.MockMode,
		SimulatedLatency:     cfg.MockDelay,
		SimulatedSuccessRate: cfg.MockSuccessRate,
		ReceiptPollInterval:  cfg.TxReceiptPoll,
		MinSignerBalanceWei:  cfg.MinSignerBalanceWei,
	}, log)
	if err != nil {
		log.Fatal("failed to open issuer", zap.Error(err))
	}
	defer closeIssuer()
	issuer := chain.Instrument(inner, chain.NewMetrics(reg), mode)

	if issuer.CheckConnection(ctx) {
		log.Info("blockchain reachable", zap.String("mode", mode))
	} else {
		log.Warn("blockchain not reachable, registrations will fail until it is", zap.String("mode", mode))
	}

	// Services
	registrationService := services.NewRegistrationService(accounts, assets, auditRepo, issuer, publisher, cfg, log)
	tokenService := services.NewTokenService(issuer, log)

	if cfg.SeedTestData {
		if err := registrationService.SeedTestData(ctx); err != nil {
			log.Error("failed to seed test data", zap.Error(err))
		}
	}

	// Handlers
	registrationHandler := handlers.NewRegistrationHandler(registrationService, log)
	tokenHandler := handlers.NewTokenHandler(tokenService, log)
	wsHub := handlers.NewWSHub(subscriber, log)

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to registration events", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, registrationHandler, tokenHandler, wsHub, reg)

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
	log.Info("starting API server", zap.String("addr", addr), zap.String("issuer", mode))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
