package common

// Pool is a handle on a system-owned account that may move funds without
// paying transfer tax.
type Pool struct {
	name    string
	account [20]byte
}

// NewPool returns a handle for the named system account.
func NewPool(name string, account [20]byte) Pool {
	return Pool{name: name, account: account}
}

func (p Pool) Name() string { return p.name }

func (p Pool) Address() [20]byte { return p.account }

// IsZero reports whether the pool has no backing account.
func (p Pool) IsZero() bool { return p.account == [20]byte{} }
