package atm

import (
	"errors"
	"fmt"

	"github.com/congo-pay/chain_atm/internal/contract"
	"github.com/congo-pay/chain_atm/internal/wallet"
)

var (
	// ErrBusy indicates another operation is in flight. Intents are not queued.
	ErrBusy = errors.New("another operation is in progress")

	// Re-exported so callers can classify every orchestrator error from one package.
	ErrNoProvider     = wallet.ErrNoProvider
	ErrUserRejected   = wallet.ErrUserRejected
	ErrUnboundSession = contract.ErrUnboundSession
	ErrInvalidAmount  = contract.ErrInvalidAmount
)

// ExternalCallError wraps a failure of the wallet, the contract call, or the
// confirmation wait.
type ExternalCallError struct {
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}
