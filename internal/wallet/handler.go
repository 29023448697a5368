package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet session endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type sessionResponse struct {
	ProviderAvailable bool   `json:"provider_available"`
	Connected         bool   `json:"connected"`
	Account           string `json:"account,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Session reports whether a wallet is available and which account is connected.
func (h *Handler) Session(c *fiber.Ctx) error {
	s := h.manager.Session()
	resp := sessionResponse{ProviderAvailable: s.ProviderAvailable, Connected: s.Connected()}
	if s.Connected() {
		resp.Account = s.Account.Hex()
	}
	if !s.ProviderAvailable {
		resp.Message = ErrNoProvider.Error()
	}
	return c.Status(http.StatusOK).JSON(resp)
}
