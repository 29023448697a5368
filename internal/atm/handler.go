package atm

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/chain_atm/internal/receipts"
)

// Handler exposes the ATM intents over HTTP.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler constructs an ATM handler.
func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type stateResponse struct {
	ProviderAvailable bool               `json:"provider_available"`
	Connected         bool               `json:"connected"`
	Account           string             `json:"account,omitempty"`
	Balance           *int64             `json:"balance"`
	Phase             Phase              `json:"phase"`
	LastError         string             `json:"last_error,omitempty"`
	Message           string             `json:"message,omitempty"`
	Receipts          []receipts.Receipt `json:"receipts"`
}

// State returns the view the presentation layer renders.
func (h *Handler) State(c *fiber.Ctx) error {
	v := h.orchestrator.View()
	resp := stateResponse{
		ProviderAvailable: v.ProviderAvailable,
		Connected:         v.Connected,
		Balance:           v.Balance,
		Phase:             v.Phase,
		LastError:         v.LastError,
		Receipts:          v.Receipts,
	}
	if v.Connected {
		resp.Account = v.Account.Hex()
	}
	switch {
	case !v.ProviderAvailable:
		resp.Message = ErrNoProvider.Error()
	case !v.Connected:
		resp.Message = "connect your wallet to use this ATM"
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Connect prompts the wallet for an account.
func (h *Handler) Connect(c *fiber.Ctx) error {
	account, err := h.orchestrator.Connect(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account":   account.Hex(),
		"connected": true,
	})
}

// Disconnect clears the wallet session.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	if err := h.orchestrator.Disconnect(); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Balance reads the balance and records a receipt.
func (h *Handler) Balance(c *fiber.Ctx) error {
	receipt, err := h.orchestrator.RefreshBalance(c.UserContext())
	return h.respond(c, receipt, err)
}

// Deposit submits a deposit and waits for confirmation.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.orchestrator.Deposit(c.UserContext(), req.Amount)
	return h.respond(c, receipt, err)
}

// Withdraw submits a withdrawal and waits for confirmation.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.orchestrator.Withdraw(c.UserContext(), req.Amount)
	return h.respond(c, receipt, err)
}

// Multiply submits a multiplyFunds call and waits for confirmation.
func (h *Handler) Multiply(c *fiber.Ctx) error {
	receipt, err := h.orchestrator.Multiply(c.UserContext())
	return h.respond(c, receipt, err)
}

func (h *Handler) respond(c *fiber.Ctx, receipt receipts.Receipt, err error) error {
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"receipt": receipt,
		"balance": receipt.Balance,
	})
}

func toHTTPError(err error) error {
	return fiber.NewError(statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrUnboundSession):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrNoProvider):
		return http.StatusServiceUnavailable
	}
	var ext *ExternalCallError
	if errors.As(err, &ext) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
