package state

import nativecommon "tokenflow/native/common"

// SystemAccounts are the protocol-owned accounts fixed at genesis.
type SystemAccounts struct {
	Treasury     [20]byte
	RewardsPool  [20]byte
	VestingVault [20]byte
	AirdropVault [20]byte
}

// All returns every system account in a stable order.
func (s SystemAccounts) All() [][20]byte {
	return [][20]byte{s.Treasury, s.RewardsPool, s.VestingVault, s.AirdropVault}
}

// Pools returns handles for the accounts that hold distributable funds.
func (s SystemAccounts) Pools() []nativecommon.Pool {
	return []nativecommon.Pool{
		nativecommon.NewPool("rewards", s.RewardsPool),
		nativecommon.NewPool("vesting", s.VestingVault),
		nativecommon.NewPool("airdrop", s.AirdropVault),
	}
}

var systemAccountsKey = []byte("system/accounts")

// SystemAccounts returns the stored system accounts and whether they exist.
func (m *Manager) SystemAccounts() (SystemAccounts, bool, error) {
	var accounts SystemAccounts
	ok, err := m.KVGet(systemAccountsKey, &accounts)
	if err != nil {
		return SystemAccounts{}, false, err
	}
	return accounts, ok, nil
}

func (m *Manager) PutSystemAccounts(accounts SystemAccounts) error {
	return m.KVPut(systemAccountsKey, accounts)
}
