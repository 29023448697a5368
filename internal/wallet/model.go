package wallet

import "github.com/ethereum/go-ethereum/common"

// Session is a copy of the wallet connection state. The zero Account means no
// account is connected.
type Session struct {
	ProviderAvailable bool
	Account           common.Address
}

// Connected reports whether the session holds an authorized account.
func (s Session) Connected() bool {
	return s.ProviderAvailable && s.Account != (common.Address{})
}
