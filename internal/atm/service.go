package atm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/congo-pay/chain_atm/internal/contract"
	"github.com/congo-pay/chain_atm/internal/notification"
	"github.com/congo-pay/chain_atm/internal/receipts"
	"github.com/congo-pay/chain_atm/internal/wallet"
)

const opConnect = "Connect"

// Binder builds a contract binding for a wallet session.
type Binder interface {
	Bind(session wallet.Session) (contract.ATM, error)
}

// Orchestrator runs user intents against the bound contract one at a time.
// An intent that arrives while another is in flight is rejected with ErrBusy.
type Orchestrator struct {
	sessions *wallet.Manager
	binder   Binder
	log      *receipts.Log
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	phase      Phase
	binding    contract.ATM
	balance    int64
	hasBalance bool
	lastErr    error
}

// NewOrchestrator wires the session manager, binding factory, receipt log and
// error reporter. A nil notifier disables reporting.
func NewOrchestrator(sessions *wallet.Manager, binder Binder, log *receipts.Log, notifier notification.Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		binder:   binder,
		log:      log,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		phase:    PhaseIdle,
	}
}

// Init probes for a wallet and binds to an account the user already
// authorized, without prompting.
func (o *Orchestrator) Init(ctx context.Context) error {
	if !o.sessions.Probe() {
		o.logger.Info("no wallet provider detected")
		return nil
	}
	if err := o.acquire(PhaseConnecting); err != nil {
		return err
	}
	defer o.release()

	if _, ok := o.sessions.ReadActiveAccount(ctx); !ok {
		return nil
	}
	if _, err := o.bind(); err != nil {
		return o.record(err)
	}
	return nil
}

// Connect prompts the wallet for an account and binds the contract to it.
func (o *Orchestrator) Connect(ctx context.Context) (common.Address, error) {
	if err := o.acquire(PhaseConnecting); err != nil {
		return common.Address{}, o.record(err)
	}
	defer o.release()

	account, err := o.sessions.RequestConnection(ctx)
	if err != nil {
		if !errors.Is(err, wallet.ErrNoProvider) && !errors.Is(err, wallet.ErrUserRejected) {
			err = &ExternalCallError{Op: opConnect, Err: err}
		}
		return common.Address{}, o.fail(ctx, opConnect, common.Address{}, err)
	}

	if _, err := o.bind(); err != nil {
		return common.Address{}, o.fail(ctx, opConnect, account, err)
	}
	o.clearError()
	return account, nil
}

// Disconnect resets the wallet session and drops the binding. Receipts are kept.
func (o *Orchestrator) Disconnect() error {
	if err := o.acquire(PhaseConnecting); err != nil {
		return o.record(err)
	}
	defer o.release()

	o.sessions.Reset()
	o.mu.Lock()
	o.binding = nil
	o.hasBalance = false
	o.mu.Unlock()
	return nil
}

// RefreshBalance reads the balance and records a "Balance Update" receipt.
func (o *Orchestrator) RefreshBalance(ctx context.Context) (receipts.Receipt, error) {
	return o.Execute(ctx, Operation{Kind: KindBalance})
}

// Deposit adds amount to the contract balance once confirmed.
func (o *Orchestrator) Deposit(ctx context.Context, amount int64) (receipts.Receipt, error) {
	return o.Execute(ctx, Operation{Kind: KindDeposit, Amount: amount})
}

// Withdraw removes amount from the contract balance once confirmed.
func (o *Orchestrator) Withdraw(ctx context.Context, amount int64) (receipts.Receipt, error) {
	return o.Execute(ctx, Operation{Kind: KindWithdraw, Amount: amount})
}

// Multiply multiplies the contract balance by the contract's fixed factor.
func (o *Orchestrator) Multiply(ctx context.Context) (receipts.Receipt, error) {
	return o.Execute(ctx, Operation{Kind: KindMultiply})
}

// Execute runs one operation to completion. Mutating operations wait for
// confirmation and then re-read the balance; the receipt carries that
// refreshed balance. Nothing is appended to the receipt log on failure.
func (o *Orchestrator) Execute(ctx context.Context, op Operation) (receipts.Receipt, error) {
	if err := op.Validate(); err != nil {
		return receipts.Receipt{}, o.record(err)
	}
	if err := o.acquire(PhaseSubmitting); err != nil {
		return receipts.Receipt{}, o.record(err)
	}
	defer o.release()

	atm, err := o.currentBinding()
	if err != nil {
		return receipts.Receipt{}, o.record(err)
	}
	owner := atm.Signer()

	var txHash string
	if op.Mutating() {
		tx, err := submit(ctx, atm, op)
		if err != nil {
			return receipts.Receipt{}, o.fail(ctx, string(op.Kind), owner, &ExternalCallError{Op: string(op.Kind), Err: err})
		}
		txHash = tx.Hash().Hex()
		o.logger.Info("transaction submitted",
			slog.String("operation", string(op.Kind)),
			slog.String("tx_hash", txHash),
			slog.Int64("amount", op.Amount),
		)

		o.setPhase(PhaseAwaitingConfirmation)
		if _, err := tx.Wait(ctx); err != nil {
			return receipts.Receipt{}, o.fail(ctx, string(op.Kind), owner, &ExternalCallError{Op: string(op.Kind), Err: err})
		}
	}

	balance, err := atm.GetBalance(ctx)
	if err != nil {
		o.mu.Lock()
		o.hasBalance = false
		o.mu.Unlock()
		return receipts.Receipt{}, o.fail(ctx, string(op.Kind), owner, &ExternalCallError{Op: string(op.Kind), Err: err})
	}

	return o.complete(ctx, op, owner, balance, txHash), nil
}

// View returns the state to render.
func (o *Orchestrator) View() View {
	session := o.sessions.Session()

	o.mu.Lock()
	v := View{
		ProviderAvailable: session.ProviderAvailable,
		Account:           session.Account,
		Connected:         session.Connected(),
		Phase:             o.phase,
	}
	if o.hasBalance {
		balance := o.balance
		v.Balance = &balance
	}
	if o.lastErr != nil {
		v.LastError = o.lastErr.Error()
	}
	o.mu.Unlock()

	v.Receipts = o.log.Snapshot()
	return v
}

// Receipts returns the receipt log.
func (o *Orchestrator) Receipts() *receipts.Log {
	return o.log
}

func submit(ctx context.Context, atm contract.ATM, op Operation) (contract.Tx, error) {
	switch op.Kind {
	case KindDeposit:
		return atm.Deposit(ctx, op.Amount)
	case KindWithdraw:
		return atm.Withdraw(ctx, op.Amount)
	default:
		return atm.MultiplyFunds(ctx)
	}
}

func (o *Orchestrator) complete(ctx context.Context, op Operation, owner common.Address, balance int64, txHash string) receipts.Receipt {
	receipt := o.log.Append(receipts.Receipt{
		Type:        string(op.Kind),
		Owner:       owner,
		Balance:     balance,
		Amount:      op.Amount,
		TxHash:      txHash,
		CompletedAt: o.now().UTC(),
	})

	o.mu.Lock()
	o.balance = balance
	o.hasBalance = true
	o.lastErr = nil
	o.mu.Unlock()

	o.logger.Info("operation completed",
		slog.String("operation", string(op.Kind)),
		slog.Uint64("sequence", receipt.Sequence),
		slog.Int64("balance", balance),
		slog.Int64("amount", op.Amount),
	)
	o.notify(ctx, notification.Message{
		Kind:        notification.KindOperationCompleted,
		Operation:   string(op.Kind),
		Destination: owner.Hex(),
		Body:        receipt.Type,
	})
	return receipt
}

// acquire moves an idle orchestrator into phase; anything else is busy.
func (o *Orchestrator) acquire(phase Phase) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseIdle {
		return ErrBusy
	}
	o.phase = phase
	return nil
}

func (o *Orchestrator) release() {
	o.setPhase(PhaseIdle)
}

func (o *Orchestrator) setPhase(phase Phase) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()
}

// currentBinding returns the binding for the connected account, rebinding
// when the account changed since the last bind.
func (o *Orchestrator) currentBinding() (contract.ATM, error) {
	session := o.sessions.Session()

	o.mu.Lock()
	binding := o.binding
	o.mu.Unlock()

	if binding != nil && session.Connected() && binding.Signer() == session.Account {
		return binding, nil
	}
	return o.bind()
}

func (o *Orchestrator) bind() (contract.ATM, error) {
	binding, err := o.binder.Bind(o.sessions.Session())
	if err != nil {
		o.mu.Lock()
		o.binding = nil
		o.hasBalance = false
		o.mu.Unlock()
		return nil, err
	}

	o.mu.Lock()
	if o.binding != binding {
		o.binding = binding
		o.hasBalance = false
	}
	o.mu.Unlock()

	o.logger.Info("contract bound",
		slog.String("contract", binding.Address().Hex()),
		slog.String("signer", binding.Signer().Hex()),
	)
	return binding, nil
}

// record stores err as the last error and returns it.
func (o *Orchestrator) record(err error) error {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) clearError() {
	o.mu.Lock()
	o.lastErr = nil
	o.mu.Unlock()
}

// fail records err and hands it to the error reporter.
func (o *Orchestrator) fail(ctx context.Context, op string, owner common.Address, err error) error {
	o.record(err)
	o.logger.Warn("operation failed", slog.String("operation", op), slog.Any("error", err))

	destination := ""
	if owner != (common.Address{}) {
		destination = owner.Hex()
	}
	o.notify(ctx, notification.Message{
		Kind:        notification.KindOperationFailed,
		Operation:   op,
		Destination: destination,
		Body:        err.Error(),
	})
	return err
}

func (o *Orchestrator) notify(ctx context.Context, msg notification.Message) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Send(ctx, msg); err != nil {
		o.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
