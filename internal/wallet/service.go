package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoProvider indicates no wallet is available to connect to.
	ErrNoProvider = errors.New("a wallet provider is required to use this ATM")

	// ErrUserRejected indicates the user declined the wallet request.
	ErrUserRejected = errors.New("user rejected the wallet request")
)

// Manager owns the wallet session. It is the only writer of the connected
// account.
type Manager struct {
	provider Provider
	logger   *slog.Logger

	mu      sync.RWMutex
	account common.Address
}

// NewManager builds a session manager. A nil provider means no wallet was
// detected; every connection attempt then fails with ErrNoProvider.
func NewManager(provider Provider, logger *slog.Logger) *Manager {
	return &Manager{provider: provider, logger: logger}
}

// Probe reports whether a wallet provider is available.
func (m *Manager) Probe() bool {
	return m.provider != nil
}

// Session returns a copy of the current session state.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{ProviderAvailable: m.Probe(), Account: m.account}
}

// ReadActiveAccount looks up an already-authorized account without prompting
// the user. Provider failures are logged and reported as no account.
func (m *Manager) ReadActiveAccount(ctx context.Context) (common.Address, bool) {
	if !m.Probe() {
		return common.Address{}, false
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		m.logger.Warn("wallet.accounts failed", slog.Any("error", err))
		return common.Address{}, false
	}
	if len(accounts) == 0 {
		m.logger.Info("wallet.accounts returned no authorized account")
		return common.Address{}, false
	}

	m.setAccount(accounts[0])
	return accounts[0], true
}

// RequestConnection prompts the user to authorize an account. When the
// wallet returns several accounts the first one is used.
func (m *Manager) RequestConnection(ctx context.Context) (common.Address, error) {
	if !m.Probe() {
		return common.Address{}, ErrNoProvider
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		if IsUserRejection(err) {
			return common.Address{}, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return common.Address{}, fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, fmt.Errorf("%w: no account authorized", ErrUserRejected)
	}

	m.setAccount(accounts[0])
	return accounts[0], nil
}

// Reset disconnects the session. The provider stays available.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account != (common.Address{}) {
		m.logger.Info("wallet disconnected", slog.String("account", m.account.Hex()))
	}
	m.account = common.Address{}
}

func (m *Manager) setAccount(account common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account != account {
		m.logger.Info("account connected", slog.String("account", account.Hex()))
	}
	m.account = account
}
