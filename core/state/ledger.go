package state

import "tokenflow/native/ledger"

const (
	ledgerExemptPrefix    = "ledger/exempt/"
	ledgerProtectedPrefix = "ledger/protected/"
	ledgerPoolPrefix      = "ledger/pool/"
)

var ledgerPolicyKey = []byte("ledger/policy")

// LedgerPolicy returns the stored tax policy or an empty policy.
func (m *Manager) LedgerPolicy() (*ledger.Policy, error) {
	policy := new(ledger.Policy)
	if _, err := m.KVGet(ledgerPolicyKey, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (m *Manager) PutLedgerPolicy(policy *ledger.Policy) error {
	if policy == nil {
		policy = &ledger.Policy{}
	}
	return m.KVPut(ledgerPolicyKey, policy)
}

func (m *Manager) flag(prefix string, addr [20]byte) (bool, error) {
	var set bool
	ok, err := m.KVGet(accountKey(prefix, addr), &set)
	if err != nil || !ok {
		return false, err
	}
	return set, nil
}

func (m *Manager) setFlag(prefix string, addr [20]byte, set bool) error {
	key := accountKey(prefix, addr)
	if !set {
		return m.KVDelete(key)
	}
	return m.KVPut(key, true)
}

func (m *Manager) LedgerExempt(addr [20]byte) (bool, error) {
	return m.flag(ledgerExemptPrefix, addr)
}

func (m *Manager) SetLedgerExempt(addr [20]byte, exempt bool) error {
	return m.setFlag(ledgerExemptPrefix, addr, exempt)
}

func (m *Manager) LedgerProtected(addr [20]byte) (bool, error) {
	return m.flag(ledgerProtectedPrefix, addr)
}

func (m *Manager) SetLedgerProtected(addr [20]byte, protected bool) error {
	return m.setFlag(ledgerProtectedPrefix, addr, protected)
}

func (m *Manager) LedgerPool(addr [20]byte) (bool, error) {
	return m.flag(ledgerPoolPrefix, addr)
}

func (m *Manager) SetLedgerPool(addr [20]byte, pool bool) error {
	return m.setFlag(ledgerPoolPrefix, addr, pool)
}
