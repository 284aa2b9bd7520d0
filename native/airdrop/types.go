package airdrop

import "math/big"

// Status is the lifecycle position of the campaign.
type Status uint8

const (
	StatusUninitialized Status = iota
	StatusActive
	StatusExpired
	StatusDeactivated
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusDeactivated:
		return "deactivated"
	default:
		return "uninitialized"
	}
}

// Campaign is the singleton airdrop configuration.
type Campaign struct {
	Root           [32]byte
	Deadline       uint64
	TotalAllocated *big.Int
	TotalClaimed   *big.Int
	Active         bool
	Initialized    bool
	Round          uint64
}

// Clone returns a deep copy of the campaign.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return &Campaign{TotalAllocated: big.NewInt(0), TotalClaimed: big.NewInt(0)}
	}
	clone := *c
	clone.TotalAllocated = cloneAmount(c.TotalAllocated)
	clone.TotalClaimed = cloneAmount(c.TotalClaimed)
	return &clone
}

// StatusAt reports the campaign status at now.
func (c *Campaign) StatusAt(now uint64) Status {
	switch {
	case c == nil || !c.Initialized:
		return StatusUninitialized
	case !c.Active:
		return StatusDeactivated
	case now >= c.Deadline:
		return StatusExpired
	default:
		return StatusActive
	}
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
