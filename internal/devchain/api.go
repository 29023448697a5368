package devchain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/congo-pay/chain_atm/internal/contract"
	"github.com/congo-pay/chain_atm/internal/wallet"
)

const (
	codeUnauthorized = 4100
	codeServerError  = -32000
)

// rpcError carries a JSON-RPC error code back to the client.
type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string  { return e.message }
func (e *rpcError) ErrorCode() int { return e.code }

// TransactionArgs mirrors the call object accepted by eth_call and
// eth_sendTransaction. Clients send the payload as either data or input.
type TransactionArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a TransactionArgs) payload() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

// ethAPI is registered under the eth namespace; method names map to
// eth_chainId, eth_accounts, eth_requestAccounts and so on.
type ethAPI struct {
	node *Node
}

func (api *ethAPI) ChainId() *hexutil.Big {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_chainId")
	return (*hexutil.Big)(new(big.Int).Set(n.chainID))
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_blockNumber")
	return hexutil.Uint64(n.block)
}

func (api *ethAPI) Accounts() []common.Address {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_accounts")
	if !n.authorized {
		return []common.Address{}
	}
	return append([]common.Address(nil), n.accounts...)
}

func (api *ethAPI) RequestAccounts() ([]common.Address, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_requestAccounts")
	if n.rejectConnection {
		return nil, &rpcError{code: wallet.CodeUserRejected, message: "User rejected the request."}
	}
	n.authorized = true
	return append([]common.Address(nil), n.accounts...), nil
}

func (api *ethAPI) Call(args TransactionArgs, _ rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_call")

	if args.To == nil || *args.To != n.contract {
		return nil, &rpcError{code: codeServerError, message: "no contract code at given address"}
	}
	method, _, err := n.decode(args.payload())
	if err != nil {
		return nil, &rpcError{code: codeServerError, message: "execution reverted: " + err.Error()}
	}

	switch method.Name {
	case contract.MethodGetBalance:
		return method.Outputs.Pack(new(big.Int).Set(n.balance))
	case contract.MethodOwner:
		return method.Outputs.Pack(n.accounts[0])
	default:
		return nil, &rpcError{code: codeServerError, message: "execution reverted"}
	}
}

func (api *ethAPI) SendTransaction(args TransactionArgs) (common.Hash, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_sendTransaction")

	if n.rejectSignatures {
		return common.Hash{}, &rpcError{code: wallet.CodeUserRejected, message: "User denied transaction signature."}
	}
	if err := n.failNextSend; err != nil {
		n.failNextSend = nil
		return common.Hash{}, err
	}
	if args.From == nil || !n.authorized || !n.ownsLocked(*args.From) {
		return common.Hash{}, &rpcError{code: codeUnauthorized, message: "The requested account has not been authorized by the user."}
	}
	if args.To == nil || *args.To != n.contract {
		return common.Hash{}, &rpcError{code: codeServerError, message: "no contract code at given address"}
	}

	return n.submitLocked(*args.From, args.payload()), nil
}

func (api *ethAPI) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countLocked("eth_getTransactionReceipt")

	receipt, ok := n.receipts[hash]
	if !ok {
		for _, tx := range n.pending {
			if tx.hash == hash {
				return nil, nil
			}
		}
		return nil, errors.New("unknown transaction")
	}
	return receipt, nil
}
