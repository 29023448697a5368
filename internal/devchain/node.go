// Package devchain runs an in-process JSON-RPC node that acts as both the
// wallet and the Assessment contract. It backs tests and local development
// when no real wallet endpoint is configured.
package devchain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/crypto/sha3"

	"github.com/congo-pay/chain_atm/internal/contract"
)

const (
	// MultiplyFactor is what multiplyFunds multiplies the balance by.
	MultiplyFactor = 5

	defaultChainID = 31337
	gasPerTx       = 21_000
)

var (
	// DefaultContract is the address the Assessment contract is deployed at
	// on a fresh local chain.
	DefaultContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	// DefaultAccounts are the first two well-known local development accounts.
	DefaultAccounts = []common.Address{
		common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
	}
)

// Options configures a Node. Zero values select the defaults above.
type Options struct {
	Contract       common.Address
	Accounts       []common.Address
	InitialBalance int64
	PreAuthorized  bool
	ChainID        int64
}

// Node is the simulated wallet and chain. The first account owns the contract.
type Node struct {
	server *rpc.Server
	abi    abi.ABI

	mu               sync.Mutex
	chainID          *big.Int
	contract         common.Address
	accounts         []common.Address
	authorized       bool
	rejectConnection bool
	rejectSignatures bool
	holdMining       bool
	failNextSend     error
	balance          *big.Int
	nonce            uint64
	block            uint64
	pending          []pendingTx
	receipts         map[common.Hash]*types.Receipt
	calls            map[string]int
}

type pendingTx struct {
	hash common.Hash
	from common.Address
	data []byte
}

// New starts a node with its JSON-RPC server registered under the eth namespace.
func New(opts Options) (*Node, error) {
	parsedABI, err := contract.ABI()
	if err != nil {
		return nil, err
	}
	if opts.Contract == (common.Address{}) {
		opts.Contract = DefaultContract
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = DefaultAccounts
	}
	if opts.ChainID == 0 {
		opts.ChainID = defaultChainID
	}
	if opts.InitialBalance < 0 {
		return nil, fmt.Errorf("initial balance must be >= 0")
	}

	n := &Node{
		abi:        parsedABI,
		chainID:    big.NewInt(opts.ChainID),
		contract:   opts.Contract,
		accounts:   append([]common.Address(nil), opts.Accounts...),
		authorized: opts.PreAuthorized,
		balance:    big.NewInt(opts.InitialBalance),
		receipts:   make(map[common.Hash]*types.Receipt),
		calls:      make(map[string]int),
	}

	n.server = rpc.NewServer()
	if err := n.server.RegisterName("eth", &ethAPI{node: n}); err != nil {
		return nil, fmt.Errorf("register eth api: %w", err)
	}
	return n, nil
}

// Client returns an in-process JSON-RPC client connected to the node.
func (n *Node) Client() *rpc.Client {
	return rpc.DialInProc(n.server)
}

// Close stops the RPC server.
func (n *Node) Close() {
	n.server.Stop()
}

// Balance returns the contract balance.
func (n *Node) Balance() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balance.Int64()
}

// SetBalance overwrites the contract balance.
func (n *Node) SetBalance(amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balance = big.NewInt(amount)
}

// RejectConnection makes eth_requestAccounts fail with the user-rejected code.
func (n *Node) RejectConnection(reject bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejectConnection = reject
}

// RejectSignatures makes eth_sendTransaction fail with the user-rejected code.
func (n *Node) RejectSignatures(reject bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejectSignatures = reject
}

// FailNextSend makes the next eth_sendTransaction return err.
func (n *Node) FailNextSend(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failNextSend = err
}

// HoldMining keeps submitted transactions pending until Mine is called.
func (n *Node) HoldMining(hold bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.holdMining = hold
}

// Mine executes every pending transaction and returns how many were mined.
func (n *Node) Mine() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mineLocked()
}

// Pending returns the number of submitted but unmined transactions.
func (n *Node) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Calls returns how many times the JSON-RPC method was invoked.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *Node) countLocked(method string) {
	n.calls[method]++
}

func (n *Node) ownsLocked(account common.Address) bool {
	for _, a := range n.accounts {
		if a == account {
			return true
		}
	}
	return false
}

func (n *Node) submitLocked(from common.Address, data []byte) common.Hash {
	hash := txHash(from, n.nonce, data)
	n.nonce++
	n.pending = append(n.pending, pendingTx{hash: hash, from: from, data: append([]byte(nil), data...)})
	if !n.holdMining {
		n.mineLocked()
	}
	return hash
}

func (n *Node) mineLocked() int {
	mined := len(n.pending)
	for _, tx := range n.pending {
		n.block++
		status := types.ReceiptStatusSuccessful
		if err := n.executeLocked(tx.from, tx.data); err != nil {
			status = types.ReceiptStatusFailed
		}
		n.receipts[tx.hash] = &types.Receipt{
			Type:              types.LegacyTxType,
			Status:            status,
			CumulativeGasUsed: gasPerTx,
			Logs:              []*types.Log{},
			TxHash:            tx.hash,
			GasUsed:           gasPerTx,
			BlockNumber:       new(big.Int).SetUint64(n.block),
		}
	}
	n.pending = nil
	return mined
}

// executeLocked applies a contract call the way the deployed contract does:
// only the owner may mutate, and withdrawals cannot exceed the balance.
func (n *Node) executeLocked(from common.Address, data []byte) error {
	method, args, err := n.decode(data)
	if err != nil {
		return err
	}
	if from != n.accounts[0] {
		return errors.New("You are not the owner of this account")
	}

	switch method.Name {
	case contract.MethodDeposit:
		n.balance = new(big.Int).Add(n.balance, args[0].(*big.Int))
	case contract.MethodWithdraw:
		amount := args[0].(*big.Int)
		if n.balance.Cmp(amount) < 0 {
			return fmt.Errorf("InsufficientBalance(%s, %s)", n.balance, amount)
		}
		n.balance = new(big.Int).Sub(n.balance, amount)
	case contract.MethodMultiplyFunds:
		n.balance = new(big.Int).Mul(n.balance, big.NewInt(MultiplyFactor))
	default:
		return fmt.Errorf("%s is not a transaction", method.Name)
	}
	return nil
}

func (n *Node) decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("missing method selector")
	}
	method, err := n.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func txHash(from common.Address, nonce uint64, data []byte) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(from.Bytes())
	h.Write(buf[:])
	h.Write(data)

	var out common.Hash
	h.Sum(out[:0])
	return out
}
