package vesting

import "math/big"

const (
	// Year is the vesting calendar unit in seconds.
	Year uint64 = 365 * 24 * 60 * 60

	DefaultCliff    = Year
	DefaultDuration = 4 * Year
)

// Schedule is a per-beneficiary linear unlock with a cliff. Times are unix
// seconds; Cliff and Duration are offsets from Start.
type Schedule struct {
	Beneficiary [20]byte
	TotalAmount *big.Int
	Released    *big.Int
	Start       uint64
	Cliff       uint64
	Duration    uint64
	Revocable   bool
	Revoked     bool
}

// Clone returns a deep copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	clone := *s
	clone.TotalAmount = cloneAmount(s.TotalAmount)
	clone.Released = cloneAmount(s.Released)
	return &clone
}

// CliffEnd returns the first instant at which tokens may unlock.
func (s *Schedule) CliffEnd() uint64 { return s.Start + s.Cliff }

// End returns the instant at which the full amount is vested.
func (s *Schedule) End() uint64 { return s.Start + s.Duration }

// CreateParams describes a new schedule. Nil times take the defaults.
type CreateParams struct {
	Beneficiary [20]byte
	Amount      *big.Int
	Start       *uint64
	Cliff       *uint64
	Duration    *uint64
	Revocable   bool
}

// VestedAmount returns the amount of s unlocked at now. A revoked schedule is
// frozen at the figure fixed when it was revoked.
func VestedAmount(s *Schedule, now uint64) *big.Int {
	if s == nil {
		return big.NewInt(0)
	}
	total := cloneAmount(s.TotalAmount)
	if s.Revoked {
		return total
	}
	if now < s.CliffEnd() {
		return big.NewInt(0)
	}
	if now >= s.End() {
		return total
	}
	elapsed := new(big.Int).SetUint64(now - s.CliffEnd())
	window := new(big.Int).SetUint64(s.Duration - s.Cliff)
	vested := new(big.Int).Mul(total, elapsed)
	return vested.Quo(vested, window)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
