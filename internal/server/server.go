package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/chain_atm/internal/atm"
	"github.com/congo-pay/chain_atm/internal/config"
	"github.com/congo-pay/chain_atm/internal/routes"
)

// Confirmations can take several blocks, so writes get more room than reads.
const (
	readTimeout  = 30 * time.Second
	writeTimeout = 2 * time.Minute
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app          *fiber.App
	cfg          config.Config
	orchestrator *atm.Orchestrator
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// A nil chain client means no wallet is available.
func New(cfg config.Config, chain *rpc.Client, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	orchestrator, err := routes.Setup(app, routes.Deps{Cfg: cfg, Cache: cache, Logger: logger, Chain: chain})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, orchestrator: orchestrator}, nil
}

// App exposes the underlying fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Orchestrator returns the ATM orchestrator the routes drive.
func (s *Server) Orchestrator() *atm.Orchestrator {
	return s.orchestrator
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
