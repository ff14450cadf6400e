package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/config"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/handlers"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	registrationHandler *handlers.RegistrationHandler,
	tokenHandler *handlers.TokenHandler,
	wsHub *handlers.WSHub,
	gatherer prometheus.Gatherer,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health and metrics stay outside the rate limit.
	app.Get("/health", tokenHandler.Health)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitMaxRequests, cfg.RateLimitWindow))

	// Registration
	api.Post("/users/register", registrationHandler.RegisterUser)
	api.Get("/users", registrationHandler.ListUsers)
	api.Get("/users/:address", registrationHandler.GetUser)
	api.Get("/users/:address/history", registrationHandler.UserHistory)

	api.Post("/register-photo", registrationHandler.RegisterPhoto)
	api.Get("/photos", registrationHandler.ListPhotos)
	api.Get("/photos/:hash", registrationHandler.GetPhoto)
	api.Get("/photos/:hash/history", registrationHandler.PhotoHistory)

	// Ledger reads
	api.Get("/network", tokenHandler.GetNetwork)
	api.Get("/tokens/supply", tokenHandler.GetSupply)
	api.Get("/tokens/:id", tokenHandler.GetToken)
	api.Get("/accounts/:address/balance", tokenHandler.GetBalance)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
