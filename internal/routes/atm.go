package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/chain_atm/internal/atm"
)

// RegisterATMRoutes wires the ATM state read and the user intents. Intents go
// through the rate-limited, idempotent group.
func RegisterATMRoutes(r, intents fiber.Router, h *atm.Handler) {
	r.Get("/state", h.State)

	intents.Post("/connect", h.Connect)
	intents.Post("/disconnect", h.Disconnect)
	intents.Post("/balance", h.Balance)
	intents.Post("/deposit", h.Deposit)
	intents.Post("/withdraw", h.Withdraw)
	intents.Post("/multiply", h.Multiply)
}
