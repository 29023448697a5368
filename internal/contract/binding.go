package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/congo-pay/chain_atm/internal/wallet"
)

var (
	// ErrUnboundSession indicates a binding was requested without a connected account.
	ErrUnboundSession = errors.New("no connected account to bind the contract to")

	// ErrReverted indicates a mined transaction whose execution failed.
	ErrReverted = errors.New("transaction reverted")

	// ErrInvalidAmount indicates a missing or non-positive amount.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Tx is a submitted state-mutating call.
type Tx interface {
	Hash() common.Hash
	// Wait blocks until the transaction is final or ctx is done.
	Wait(ctx context.Context) (*types.Receipt, error)
}

// ATM is the fixed call interface of the Assessment contract.
type ATM interface {
	Address() common.Address
	Signer() common.Address
	GetBalance(ctx context.Context) (int64, error)
	Deposit(ctx context.Context, amount int64) (Tx, error)
	Withdraw(ctx context.Context, amount int64) (Tx, error)
	MultiplyFunds(ctx context.Context) (Tx, error)
}

// Binding calls the contract on behalf of one signer. Reads use eth_call and
// writes are handed to the wallet through eth_sendTransaction.
type Binding struct {
	address      common.Address
	signer       common.Address
	abi          abi.ABI
	rpc          *rpc.Client
	eth          *ethclient.Client
	pollInterval time.Duration
}

type sendTxArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// Address returns the contract address.
func (b *Binding) Address() common.Address { return b.address }

// Signer returns the account transactions are sent from.
func (b *Binding) Signer() common.Address { return b.signer }

// GetBalance reads the balance held by the contract.
func (b *Binding) GetBalance(ctx context.Context) (int64, error) {
	data, err := b.abi.Pack(MethodGetBalance)
	if err != nil {
		return 0, fmt.Errorf("pack %s: %w", MethodGetBalance, err)
	}

	out, err := b.eth.CallContract(ctx, ethereum.CallMsg{From: b.signer, To: &b.address, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", MethodGetBalance, err)
	}

	values, err := b.abi.Unpack(MethodGetBalance, out)
	if err != nil {
		return 0, fmt.Errorf("unpack %s: %w", MethodGetBalance, err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("unpack %s: expected 1 value, got %d", MethodGetBalance, len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unpack %s: unexpected type %T", MethodGetBalance, values[0])
	}
	if !balance.IsInt64() {
		return 0, fmt.Errorf("balance %s does not fit in int64", balance)
	}
	return balance.Int64(), nil
}

// Deposit submits deposit(amount).
func (b *Binding) Deposit(ctx context.Context, amount int64) (Tx, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d is not positive", ErrInvalidAmount, amount)
	}
	return b.transact(ctx, MethodDeposit, big.NewInt(amount))
}

// Withdraw submits withdraw(amount).
func (b *Binding) Withdraw(ctx context.Context, amount int64) (Tx, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d is not positive", ErrInvalidAmount, amount)
	}
	return b.transact(ctx, MethodWithdraw, big.NewInt(amount))
}

// MultiplyFunds submits multiplyFunds().
func (b *Binding) MultiplyFunds(ctx context.Context) (Tx, error) {
	return b.transact(ctx, MethodMultiplyFunds)
}

func (b *Binding) transact(ctx context.Context, method string, args ...any) (Tx, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var hash common.Hash
	if err := b.rpc.CallContext(ctx, &hash, "eth_sendTransaction", sendTxArgs{From: b.signer, To: &b.address, Data: data}); err != nil {
		if wallet.IsUserRejection(err) {
			return nil, fmt.Errorf("send %s: %w", method, wallet.ErrUserRejected)
		}
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	return &PendingTx{hash: hash, eth: b.eth, pollInterval: b.pollInterval}, nil
}

// PendingTx waits for a submitted transaction by polling for its receipt.
type PendingTx struct {
	hash         common.Hash
	eth          *ethclient.Client
	pollInterval time.Duration
}

// Hash returns the transaction hash assigned by the wallet.
func (t *PendingTx) Hash() common.Hash { return t.hash }

// Wait polls until a receipt exists. A failed receipt yields ErrReverted.
// There is no built-in deadline; only ctx bounds the wait.
func (t *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.eth.TransactionReceipt(ctx, t.hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, t.hash.Hex())
			}
			return receipt, nil
		}
		// A deadline hit mid-request surfaces as a transport error.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", t.hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
