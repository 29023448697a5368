package contract

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/congo-pay/chain_atm/internal/wallet"
)

const defaultPollInterval = time.Second

// Factory builds bindings to one fixed contract address. The most recent
// binding is reused while the signer stays the same.
type Factory struct {
	address      common.Address
	rpc          *rpc.Client
	eth          *ethclient.Client
	pollInterval time.Duration

	mu   sync.Mutex
	last *Binding
}

// NewFactory prepares a factory for the contract at address, reached through
// the wallet's JSON-RPC client.
func NewFactory(client *rpc.Client, address common.Address, pollInterval time.Duration) *Factory {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Factory{
		address:      address,
		rpc:          client,
		eth:          ethclient.NewClient(client),
		pollInterval: pollInterval,
	}
}

// Bind returns a binding whose signer is the session's account.
func (f *Factory) Bind(session wallet.Session) (ATM, error) {
	if !session.Connected() {
		return nil, ErrUnboundSession
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last != nil && f.last.signer == session.Account {
		return f.last, nil
	}

	parsedABI, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("load contract abi: %w", err)
	}

	f.last = &Binding{
		address:      f.address,
		signer:       session.Account,
		abi:          parsedABI,
		rpc:          f.rpc,
		eth:          f.eth,
		pollInterval: f.pollInterval,
	}
	return f.last, nil
}
