package state

import (
	"fmt"
	"math/big"
)

var (
	totalSupplyKey  = []byte("ledger/supply/total")
	supplySealedKey = []byte("ledger/supply/sealed")
)

// TotalSupply returns the recorded supply. Missing entries default to zero.
func (m *Manager) TotalSupply() (*big.Int, error) {
	total := new(big.Int)
	ok, err := m.KVGet(totalSupplyKey, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// SetTotalSupply overwrites the recorded supply.
func (m *Manager) SetTotalSupply(amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: supply cannot be negative")
	}
	return m.KVPut(totalSupplyKey, amount)
}

// SupplySealed reports whether genesis minting has been closed.
func (m *Manager) SupplySealed() (bool, error) {
	var sealed bool
	ok, err := m.KVGet(supplySealedKey, &sealed)
	if err != nil || !ok {
		return false, err
	}
	return sealed, nil
}

// SealSupply closes the mint and burn path. There is no way to reopen it.
func (m *Manager) SealSupply() error {
	return m.KVPut(supplySealedKey, true)
}
