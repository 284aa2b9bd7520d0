package core

import (
	"context"
	"math/big"

	"tokenflow/native/common"
	"tokenflow/native/ledger"
	"tokenflow/native/vesting"
)

type operation struct {
	name       string
	module     string
	capability common.Capability
}

var (
	opTransfer          = operation{"transfer", common.ModuleLedger, ""}
	opSetTaxRate        = operation{"setTaxRate", common.ModuleLedger, common.CapTaxAdmin}
	opSetReservoir      = operation{"setReservoir", common.ModuleLedger, common.CapTaxAdmin}
	opSetExempt         = operation{"setExempt", common.ModuleLedger, common.CapTaxAdmin}
	opDistributeReward  = operation{"distributeReward", common.ModuleRewards, common.CapRewardsDistributor}
	opBatchDistribute   = operation{"batchDistributeRewards", common.ModuleRewards, common.CapRewardsDistributor}
	opCreateVesting     = operation{"createVestingSchedule", common.ModuleVesting, common.CapVestingAdmin}
	opReleaseVested     = operation{"releaseVested", common.ModuleVesting, ""}
	opRevokeVesting     = operation{"revokeVesting", common.ModuleVesting, common.CapVestingAdmin}
	opInitializeAirdrop = operation{"initializeAirdrop", common.ModuleAirdrop, common.CapAirdropAdmin}
	opUpdateAirdropRoot = operation{"updateAirdropRoot", common.ModuleAirdrop, common.CapAirdropAdmin}
	opSetAirdropActive  = operation{"setAirdropActive", common.ModuleAirdrop, common.CapAirdropAdmin}
	opClaimAirdrop      = operation{"claimAirdrop", common.ModuleAirdrop, ""}
	opClaimAirdropFor   = operation{"claimAirdropFor", common.ModuleAirdrop, ""}
	opRecoverUnclaimed  = operation{"recoverUnclaimed", common.ModuleAirdrop, common.CapAirdropAdmin}
)

// Transfer moves amount from the caller to to, applying the tax policy.
func (e *Economy) Transfer(ctx context.Context, caller, to [20]byte, amount *big.Int) (*ledger.Settlement, error) {
	var settlement *ledger.Settlement
	err := e.mutate(ctx, opTransfer, caller, func(s *session) error {
		var err error
		settlement, err = s.ledger.Transfer(caller, to, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (e *Economy) SetTaxRate(ctx context.Context, caller [20]byte, rateBps uint32) error {
	return e.mutate(ctx, opSetTaxRate, caller, func(s *session) error {
		return s.ledger.SetTaxRate(caller, rateBps)
	})
}

func (e *Economy) SetReservoir(ctx context.Context, caller, reservoir [20]byte) error {
	return e.mutate(ctx, opSetReservoir, caller, func(s *session) error {
		return s.ledger.SetReservoir(caller, reservoir)
	})
}

func (e *Economy) SetExempt(ctx context.Context, caller, addr [20]byte, exempt bool) error {
	return e.mutate(ctx, opSetExempt, caller, func(s *session) error {
		return s.ledger.SetExempt(caller, addr, exempt)
	})
}

// DistributeReward pays recipient from the rewards pool.
func (e *Economy) DistributeReward(ctx context.Context, caller, recipient [20]byte, amount *big.Int, activityID string) error {
	return e.mutate(ctx, opDistributeReward, caller, func(s *session) error {
		return s.rewards.DistributeReward(recipient, amount, activityID)
	})
}

// BatchDistributeRewards pays every entry or none of them.
func (e *Economy) BatchDistributeRewards(ctx context.Context, caller [20]byte, recipients [][20]byte, amounts []*big.Int, activityIDs []string) error {
	return e.mutate(ctx, opBatchDistribute, caller, func(s *session) error {
		return s.rewards.BatchDistributeRewards(recipients, amounts, activityIDs)
	})
}

func (e *Economy) CreateVestingSchedule(ctx context.Context, caller [20]byte, params vesting.CreateParams) (*vesting.Schedule, error) {
	var schedule *vesting.Schedule
	err := e.mutate(ctx, opCreateVesting, caller, func(s *session) error {
		var err error
		schedule, err = s.vesting.CreateSchedule(params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// ReleaseVested transfers the beneficiary's releasable tokens. Anyone may
// trigger it; tokens only ever move to the beneficiary.
func (e *Economy) ReleaseVested(ctx context.Context, caller, beneficiary [20]byte) (*big.Int, error) {
	var released *big.Int
	err := e.mutate(ctx, opReleaseVested, caller, func(s *session) error {
		var err error
		released, err = s.vesting.Release(beneficiary)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// RevokeVesting freezes a revocable schedule and returns the forfeited amount.
func (e *Economy) RevokeVesting(ctx context.Context, caller, beneficiary [20]byte) (*big.Int, error) {
	var forfeited *big.Int
	err := e.mutate(ctx, opRevokeVesting, caller, func(s *session) error {
		var err error
		forfeited, err = s.vesting.Revoke(beneficiary)
		return err
	})
	if err != nil {
		return nil, err
	}
	return forfeited, nil
}

func (e *Economy) InitializeAirdrop(ctx context.Context, caller [20]byte, root [32]byte, deadline uint64, totalAllocated *big.Int) error {
	return e.mutate(ctx, opInitializeAirdrop, caller, func(s *session) error {
		return s.airdrop.Initialize(root, deadline, totalAllocated)
	})
}

func (e *Economy) UpdateAirdropRoot(ctx context.Context, caller [20]byte, root [32]byte) error {
	return e.mutate(ctx, opUpdateAirdropRoot, caller, func(s *session) error {
		return s.airdrop.UpdateRoot(root)
	})
}

func (e *Economy) SetAirdropActive(ctx context.Context, caller [20]byte, active bool) error {
	return e.mutate(ctx, opSetAirdropActive, caller, func(s *session) error {
		return s.airdrop.SetActive(active)
	})
}

// ClaimAirdrop claims the caller's own allocation.
func (e *Economy) ClaimAirdrop(ctx context.Context, caller [20]byte, amount *big.Int, proof [][32]byte) error {
	return e.mutate(ctx, opClaimAirdrop, caller, func(s *session) error {
		return s.airdrop.Claim(caller, amount, proof)
	})
}

// ClaimAirdropFor submits a claim on behalf of account. Tokens are credited
// to account, never to the caller.
func (e *Economy) ClaimAirdropFor(ctx context.Context, caller, account [20]byte, amount *big.Int, proof [][32]byte) error {
	return e.mutate(ctx, opClaimAirdropFor, caller, func(s *session) error {
		return s.airdrop.ClaimFor(caller, account, amount, proof)
	})
}

// RecoverUnclaimed sweeps the vault to to after the deadline.
func (e *Economy) RecoverUnclaimed(ctx context.Context, caller, to [20]byte) (*big.Int, error) {
	var swept *big.Int
	err := e.mutate(ctx, opRecoverUnclaimed, caller, func(s *session) error {
		var err error
		swept, err = s.airdrop.RecoverUnclaimed(to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}
