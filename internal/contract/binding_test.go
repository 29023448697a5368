package contract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/congo-pay/chain_atm/internal/contract"
	"github.com/congo-pay/chain_atm/internal/devchain"
	"github.com/congo-pay/chain_atm/internal/wallet"
)

func setup(t *testing.T, balance int64) (*devchain.Node, *contract.Factory) {
	t.Helper()
	node, err := devchain.New(devchain.Options{InitialBalance: balance, PreAuthorized: true})
	if err != nil {
		t.Fatalf("devchain: %v", err)
	}
	client := node.Client()
	t.Cleanup(func() {
		client.Close()
		node.Close()
	})
	return node, contract.NewFactory(client, devchain.DefaultContract, 5*time.Millisecond)
}

func connected(account common.Address) wallet.Session {
	return wallet.Session{ProviderAvailable: true, Account: account}
}

func TestBindRequiresAccount(t *testing.T) {
	_, factory := setup(t, 0)

	if _, err := factory.Bind(wallet.Session{ProviderAvailable: true}); !errors.Is(err, contract.ErrUnboundSession) {
		t.Fatalf("expected ErrUnboundSession, got %v", err)
	}
	if _, err := factory.Bind(wallet.Session{}); !errors.Is(err, contract.ErrUnboundSession) {
		t.Fatalf("expected ErrUnboundSession without provider, got %v", err)
	}
}

func TestBindMemoizesBySigner(t *testing.T) {
	_, factory := setup(t, 0)
	owner := devchain.DefaultAccounts[0]

	first, err := factory.Bind(connected(owner))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	second, err := factory.Bind(connected(owner))
	if err != nil {
		t.Fatalf("bind again: %v", err)
	}
	if first != second {
		t.Fatal("expected the same binding for the same signer")
	}

	other, err := factory.Bind(connected(devchain.DefaultAccounts[1]))
	if err != nil {
		t.Fatalf("bind other: %v", err)
	}
	if other == first || other.Signer() != devchain.DefaultAccounts[1] {
		t.Fatal("expected a new binding for a new signer")
	}
	if other.Address() != devchain.DefaultContract {
		t.Fatalf("unexpected contract address %s", other.Address().Hex())
	}
}

func TestDepositWithdrawMultiply(t *testing.T) {
	_, factory := setup(t, 100)
	ctx := context.Background()

	atm, err := factory.Bind(connected(devchain.DefaultAccounts[0]))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	balance, err := atm.GetBalance(ctx)
	if err != nil || balance != 100 {
		t.Fatalf("expected balance 100, got %d (%v)", balance, err)
	}

	steps := []struct {
		name   string
		submit func() (contract.Tx, error)
		want   int64
	}{
		{"deposit", func() (contract.Tx, error) { return atm.Deposit(ctx, 5) }, 105},
		{"withdraw", func() (contract.Tx, error) { return atm.Withdraw(ctx, 20) }, 85},
		{"multiply", func() (contract.Tx, error) { return atm.MultiplyFunds(ctx) }, 425},
	}
	for _, step := range steps {
		tx, err := step.submit()
		if err != nil {
			t.Fatalf("%s submit: %v", step.name, err)
		}
		if _, err := tx.Wait(ctx); err != nil {
			t.Fatalf("%s wait: %v", step.name, err)
		}
		got, err := atm.GetBalance(ctx)
		if err != nil {
			t.Fatalf("%s balance: %v", step.name, err)
		}
		if got != step.want {
			t.Fatalf("%s: expected balance %d, got %d", step.name, step.want, got)
		}
	}
}

func TestWaitReportsRevert(t *testing.T) {
	_, factory := setup(t, 10)
	ctx := context.Background()
	atm, _ := factory.Bind(connected(devchain.DefaultAccounts[0]))

	tx, err := atm.Withdraw(ctx, 50)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := tx.Wait(ctx); !errors.Is(err, contract.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestWaitBlocksUntilMined(t *testing.T) {
	node, factory := setup(t, 1)
	node.HoldMining(true)
	ctx := context.Background()
	atm, _ := factory.Bind(connected(devchain.DefaultAccounts[0]))

	tx, err := atm.Deposit(ctx, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if _, err := tx.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wait to block until the deadline, got %v", err)
	}

	node.Mine()
	if _, err := tx.Wait(ctx); err != nil {
		t.Fatalf("wait after mining: %v", err)
	}
}

func TestWaitWithCancelledContext(t *testing.T) {
	node, factory := setup(t, 1)
	node.HoldMining(true)
	atm, _ := factory.Bind(connected(devchain.DefaultAccounts[0]))

	tx, err := atm.Deposit(context.Background(), 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tx.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSignatureRejection(t *testing.T) {
	node, factory := setup(t, 1)
	node.RejectSignatures(true)
	atm, _ := factory.Bind(connected(devchain.DefaultAccounts[0]))

	if _, err := atm.MultiplyFunds(context.Background()); !errors.Is(err, wallet.ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
}

func TestNonPositiveAmountIsNotSent(t *testing.T) {
	node, factory := setup(t, 1)
	atm, _ := factory.Bind(connected(devchain.DefaultAccounts[0]))

	if _, err := atm.Deposit(context.Background(), 0); !errors.Is(err, contract.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero deposit, got %v", err)
	}
	if _, err := atm.Withdraw(context.Background(), -3); !errors.Is(err, contract.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative withdrawal, got %v", err)
	}
	if node.Calls("eth_sendTransaction") != 0 {
		t.Fatal("invalid amounts must not reach the wallet")
	}
}
