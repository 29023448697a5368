package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/chain_atm/internal/receipts"
)

// RegisterReceiptRoutes wires the receipt log and its QR export.
func RegisterReceiptRoutes(r fiber.Router, h *receipts.Handler) {
	r.Get("/receipts", h.List)
	r.Get("/receipts/qr", h.QR)
}
