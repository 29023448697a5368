package receipts

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the receipt log for rendering and export.
type Handler struct {
	log *Log
}

// NewHandler builds a receipts HTTP handler.
func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// List returns the retained receipts, oldest first.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"receipts": h.log.Snapshot(),
		"next":     h.log.Next(),
	})
}

// QR returns the serialized receipts as a PNG QR code.
func (h *Handler) QR(c *fiber.Ctx) error {
	png, err := h.log.QRCode(c.QueryInt("size", defaultQRSize))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Status(http.StatusOK).Send(png)
}
