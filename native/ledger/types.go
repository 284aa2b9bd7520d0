package ledger

import "math/big"

const (
	// MaxTaxRateBps is the hard upper bound on the transfer tax (10%).
	MaxTaxRateBps uint32 = 1_000
	// BpsDenominator expresses 100% in basis points.
	BpsDenominator = 10_000
)

// Policy is the persisted tax configuration consulted by every settlement.
type Policy struct {
	RateBps   uint32
	Reservoir [20]byte
}

// Clone returns a copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return &Policy{}
	}
	clone := *p
	return &clone
}

// Settlement describes the balance legs applied by a transfer.
type Settlement struct {
	From      [20]byte
	To        [20]byte
	Amount    *big.Int
	Net       *big.Int
	Tax       *big.Int
	Reservoir [20]byte
}

// Taxed reports whether a tax leg was routed to the reservoir.
func (s *Settlement) Taxed() bool {
	return s != nil && s.Tax != nil && s.Tax.Sign() > 0
}

// ComputeTax splits amount at rateBps, rounding the tax leg down.
func ComputeTax(amount *big.Int, rateBps uint32) (tax, net *big.Int) {
	if amount == nil || amount.Sign() <= 0 || rateBps == 0 {
		base := big.NewInt(0)
		if amount != nil {
			base.Set(amount)
		}
		return big.NewInt(0), base
	}
	tax = new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(rateBps)))
	tax.Quo(tax, big.NewInt(BpsDenominator))
	net = new(big.Int).Sub(amount, tax)
	return tax, net
}
