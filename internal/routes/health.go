package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/chain_atm/internal/infra"
)

// RegisterHealthRoutes adds a readiness endpoint covering Redis and the wallet RPC.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		redisStatus := "disabled"
		walletStatus := "unavailable"
		healthy := true

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
				healthy = false
			}
		}
		if d.Chain != nil {
			walletStatus = "ok"
			if _, err := infra.ChainID(ctx, d.Chain); err != nil {
				walletStatus = err.Error()
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"redis": redisStatus, "wallet": walletStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
