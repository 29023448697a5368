package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/chain_atm/internal/atm"
	"github.com/congo-pay/chain_atm/internal/config"
	"github.com/congo-pay/chain_atm/internal/contract"
	"github.com/congo-pay/chain_atm/internal/middleware"
	"github.com/congo-pay/chain_atm/internal/notification"
	"github.com/congo-pay/chain_atm/internal/receipts"
	"github.com/congo-pay/chain_atm/internal/wallet"
)

const initTimeout = 10 * time.Second

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Cache  *redis.Client
	Logger *slog.Logger
	// Chain is the wallet's JSON-RPC client. Nil means no wallet was detected.
	Chain *rpc.Client
}

// Setup configures middlewares, builds the ATM services and registers routes.
// It returns the orchestrator so callers can inspect state.
func Setup(app *fiber.App, d Deps) (*atm.Orchestrator, error) {
	if !d.Cfg.IsDevelopment() && d.Cache == nil {
		return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// A typed nil provider would look like an available wallet.
	var provider wallet.Provider
	if d.Chain != nil {
		provider = wallet.NewRPCProvider(d.Chain)
	}
	sessions := wallet.NewManager(provider, d.Logger)
	factory := contract.NewFactory(d.Chain, d.Cfg.ContractAddress, d.Cfg.PollInterval)
	receiptLog := receipts.NewLog()
	notifier := notification.NewLoggerNotifier(d.Logger)
	orchestrator := atm.NewOrchestrator(sessions, factory, receiptLog, notifier, d.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := orchestrator.Init(ctx); err != nil {
		d.Logger.Warn("initial wallet bind failed", slog.Any("error", err))
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c.UserContext()),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, wallet.NewHandler(sessions))
	RegisterReceiptRoutes(api, receipts.NewHandler(receiptLog))

	intents := api.Group("",
		middleware.IntentRateLimit(d.Cache, d.Cfg.IntentRateLimit),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)
	RegisterATMRoutes(api, intents, atm.NewHandler(orchestrator))

	return orchestrator, nil
}
