package common

// Capability names a privileged action group.
type Capability string

const (
	CapTaxAdmin           Capability = "tax.admin"
	CapRewardsDistributor Capability = "rewards.distributor"
	CapVestingAdmin       Capability = "vesting.admin"
	CapAirdropAdmin       Capability = "airdrop.admin"
)

// Capabilities lists every known capability in a stable order.
func Capabilities() []Capability {
	return []Capability{CapTaxAdmin, CapRewardsDistributor, CapVestingAdmin, CapAirdropAdmin}
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, known := range Capabilities() {
		if c == known {
			return true
		}
	}
	return false
}

// Authorizer answers capability checks for a caller.
type Authorizer interface {
	HasCapability(addr [20]byte, c Capability) bool
}

// Authorize returns an UnauthorizedError when caller lacks c.
func Authorize(auth Authorizer, caller [20]byte, c Capability) error {
	if c == "" {
		return nil
	}
	if auth == nil || !auth.HasCapability(caller, c) {
		return &UnauthorizedError{Caller: caller, Capability: c}
	}
	return nil
}
