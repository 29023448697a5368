package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryProvider is an in-memory wallet for tests. Accounts become visible
// through Accounts only after a successful RequestAccounts unless the
// provider was created pre-authorized.
type MemoryProvider struct {
	mu         sync.Mutex
	accounts   []common.Address
	authorized bool
	reject     bool
	err        error
	requests   int
}

// NewMemoryProvider returns a provider holding the given accounts.
func NewMemoryProvider(authorized bool, accounts ...common.Address) *MemoryProvider {
	return &MemoryProvider{accounts: accounts, authorized: authorized}
}

// Reject makes subsequent RequestAccounts calls fail as a user rejection.
func (p *MemoryProvider) Reject(reject bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reject = reject
}

// Fail makes every call return err until cleared with nil.
func (p *MemoryProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Requests returns how many times RequestAccounts was called.
func (p *MemoryProvider) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *MemoryProvider) Accounts(_ context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if !p.authorized {
		return []common.Address{}, nil
	}
	return append([]common.Address(nil), p.accounts...), nil
}

func (p *MemoryProvider) RequestAccounts(_ context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.err != nil {
		return nil, p.err
	}
	if p.reject {
		return nil, ErrUserRejected
	}
	p.authorized = true
	return append([]common.Address(nil), p.accounts...), nil
}
