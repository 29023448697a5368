package receipts

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeBalanceUpdate labels a read-only balance query.
	TypeBalanceUpdate = "Balance Update"
	// TypeDeposit labels a confirmed deposit.
	TypeDeposit = "Deposit"
	// TypeWithdraw labels a confirmed withdrawal.
	TypeWithdraw = "Withdraw"
	// TypeMultiply labels a confirmed balance multiplication.
	TypeMultiply = "Multiply"
)

// Receipt is an immutable record of one completed operation. The JSON keys of
// the first five fields form the exported QR payload.
type Receipt struct {
	Type        string         `json:"type"`
	Sequence    uint64         `json:"transactionNumber"`
	Owner       common.Address `json:"owner"`
	Balance     int64          `json:"balance"`
	Amount      int64          `json:"amount"`
	TxHash      string         `json:"txHash,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
}
