package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// CodeUserRejected is the EIP-1193 error code a wallet returns when the user
// declines a connection or signature request.
const CodeUserRejected = 4001

// Provider is the account surface of a wallet.
type Provider interface {
	// Accounts lists already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts prompts the user to authorize accounts.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
}

// RPCProvider talks to a wallet over JSON-RPC.
type RPCProvider struct {
	client *rpc.Client
}

// NewRPCProvider wraps an established JSON-RPC client.
func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

// Accounts calls eth_accounts.
func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// RequestAccounts calls eth_requestAccounts.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// IsUserRejection reports whether err carries the wallet's user-rejected code.
func IsUserRejection(err error) bool {
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == CodeUserRejected
}
