// Package contract binds the Assessment ATM contract to a connected wallet.
package contract

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Method names of the Assessment contract.
const (
	MethodGetBalance    = "getBalance"
	MethodDeposit       = "deposit"
	MethodWithdraw      = "withdraw"
	MethodMultiplyFunds = "multiplyFunds"
	MethodOwner         = "owner"
)

//go:embed assessment.abi.json
var assessmentABI []byte

var (
	parseOnce sync.Once
	parsed    abi.ABI
	parseErr  error
)

// ABI returns the parsed call interface of the Assessment contract. The
// embedded JSON is parsed once per process.
func ABI() (abi.ABI, error) {
	parseOnce.Do(func() {
		parsed, parseErr = abi.JSON(bytes.NewReader(assessmentABI))
	})
	return parsed, parseErr
}
