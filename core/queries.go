package core

import (
	"math/big"

	"tokenflow/native/airdrop"
	"tokenflow/native/common"
	"tokenflow/native/vesting"
)

func (e *Economy) BalanceOf(addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.ledger.BalanceOf(addr)
		return err
	})
	return out, err
}

func (e *Economy) TotalSupply() (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.ledger.TotalSupply()
		return err
	})
	return out, err
}

// CirculatingSupply is the total supply minus the rewards pool balance.
func (e *Economy) CirculatingSupply() (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.rewards.CirculatingSupply()
		return err
	})
	return out, err
}

func (e *Economy) TaxRateBps() (uint32, error) {
	var out uint32
	err := e.query(func(s *session) error {
		var err error
		out, err = s.ledger.TaxRateBps()
		return err
	})
	return out, err
}

func (e *Economy) Reservoir() ([20]byte, error) {
	var out [20]byte
	err := e.query(func(s *session) error {
		var err error
		out, err = s.ledger.Reservoir()
		return err
	})
	return out, err
}

func (e *Economy) IsExempt(addr [20]byte) (bool, error) {
	var out bool
	err := e.query(func(s *session) error {
		var err error
		out, err = s.ledger.IsExempt(addr)
		return err
	})
	return out, err
}

// CalculateTax quotes the tax a non-exempt transfer of amount would pay.
func (e *Economy) CalculateTax(amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.ledger.CalculateTax(amount)
		return err
	})
	return out, err
}

func (e *Economy) RewardsPoolBalance() (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.rewards.PoolBalance()
		return err
	})
	return out, err
}

// VestingSchedule returns vesting.ErrScheduleNotFound when beneficiary has
// no schedule.
func (e *Economy) VestingSchedule(beneficiary [20]byte) (*vesting.Schedule, error) {
	var out *vesting.Schedule
	err := e.query(func(s *session) error {
		var err error
		out, err = s.vesting.Schedule(beneficiary)
		return err
	})
	return out, err
}

func (e *Economy) VestedAmount(beneficiary [20]byte, at uint64) (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.vesting.VestedAmountOf(beneficiary, at)
		return err
	})
	return out, err
}

func (e *Economy) ReleasableAmount(beneficiary [20]byte) (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.vesting.ReleasableAmount(beneficiary)
		return err
	})
	return out, err
}

func (e *Economy) VestingCommitted() (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.vesting.Committed()
		return err
	})
	return out, err
}

// VestingUnallocated is the vault balance not yet promised to a schedule.
func (e *Economy) VestingUnallocated() (*big.Int, error) {
	var out *big.Int
	err := e.query(func(s *session) error {
		var err error
		out, err = s.vesting.Unallocated()
		return err
	})
	return out, err
}

// AirdropCampaign returns the current campaign, or nil before initialisation.
func (e *Economy) AirdropCampaign() (*airdrop.Campaign, error) {
	var out *airdrop.Campaign
	err := e.query(func(s *session) error {
		var err error
		out, err = s.airdrop.Campaign()
		return err
	})
	return out, err
}

func (e *Economy) AirdropStatus() (airdrop.Status, error) {
	var out airdrop.Status
	err := e.query(func(s *session) error {
		var err error
		out, err = s.airdrop.Status()
		return err
	})
	return out, err
}

func (e *Economy) TimeUntilDeadline() (uint64, error) {
	var out uint64
	err := e.query(func(s *session) error {
		var err error
		out, err = s.airdrop.TimeUntilDeadline()
		return err
	})
	return out, err
}

// CanClaim reports whether a claim with these arguments would succeed now.
func (e *Economy) CanClaim(account [20]byte, amount *big.Int, proof [][32]byte) (bool, error) {
	var out bool
	err := e.query(func(s *session) error {
		var err error
		out, err = s.airdrop.CanClaim(account, amount, proof)
		return err
	})
	return out, err
}

func (e *Economy) HasClaimed(account [20]byte) (bool, error) {
	var out bool
	err := e.query(func(s *session) error {
		var err error
		out, err = s.airdrop.HasClaimed(account)
		return err
	})
	return out, err
}

// HasCapability reports whether addr passes the capability check applied to
// mutations.
func (e *Economy) HasCapability(addr [20]byte, capability string) bool {
	if capability == "" {
		return false
	}
	var out bool
	_ = e.query(func(s *session) error {
		out = e.authorize(s, addr, common.Capability(capability)) == nil
		return nil
	})
	return out
}
