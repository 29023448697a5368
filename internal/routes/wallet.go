package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/chain_atm/internal/wallet"
)

// RegisterWalletRoutes wires wallet session endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Session)
}
