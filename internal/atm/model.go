package atm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/congo-pay/chain_atm/internal/receipts"
)

// Kind identifies an operation; its value doubles as the receipt label.
type Kind string

const (
	KindBalance  Kind = receipts.TypeBalanceUpdate
	KindDeposit  Kind = receipts.TypeDeposit
	KindWithdraw Kind = receipts.TypeWithdraw
	KindMultiply Kind = receipts.TypeMultiply
)

// Operation is one user intent against the contract.
type Operation struct {
	Kind   Kind
	Amount int64
}

// Validate checks the amount rules: deposits and withdrawals need a positive
// amount, balance queries and multiplication take none.
func (op Operation) Validate() error {
	switch op.Kind {
	case KindDeposit, KindWithdraw:
		if op.Amount <= 0 {
			return fmt.Errorf("%w: %s amount must be a positive integer, got %d", ErrInvalidAmount, op.Kind, op.Amount)
		}
	case KindBalance, KindMultiply:
		if op.Amount != 0 {
			return fmt.Errorf("%w: %s takes no amount", ErrInvalidAmount, op.Kind)
		}
	default:
		return fmt.Errorf("unknown operation %q", op.Kind)
	}
	return nil
}

// Mutating reports whether the operation sends a transaction.
func (op Operation) Mutating() bool {
	return op.Kind != KindBalance
}

// Phase is the orchestrator's position in the operation lifecycle. Completed
// and failed outcomes are reported to the caller and the orchestrator is idle
// again by the time they are observable.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseConnecting           Phase = "connecting"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
)

// View is the state the presentation layer renders.
type View struct {
	ProviderAvailable bool
	Account           common.Address
	Connected         bool
	// Balance is nil until a balance has been read for the current account.
	Balance   *int64
	Phase     Phase
	LastError string
	Receipts  []receipts.Receipt
}
