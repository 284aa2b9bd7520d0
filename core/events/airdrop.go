package events

import (
	"math/big"
	"strconv"

	"tokenflow/core/types"
)

const (
	TypeAirdropInitialized   = "airdrop.initialized"
	TypeAirdropRootUpdated   = "airdrop.root.updated"
	TypeAirdropStatusUpdated = "airdrop.status.updated"
	TypeAirdropClaimed       = "airdrop.claimed"
	TypeAirdropRecovered     = "airdrop.recovered"
)

type AirdropInitialized struct {
	Root           [32]byte
	Deadline       uint64
	TotalAllocated *big.Int
	Round          uint64
}

func (AirdropInitialized) EventType() string { return TypeAirdropInitialized }

func (e AirdropInitialized) Event() *types.Event {
	return &types.Event{Type: TypeAirdropInitialized, Attributes: map[string]string{
		"root":           formatHash(e.Root),
		"deadline":       formatUint(e.Deadline),
		"totalAllocated": formatAmount(e.TotalAllocated),
		"round":          formatUint(e.Round),
	}}
}

type AirdropRootUpdated struct {
	Old [32]byte
	New [32]byte
}

func (AirdropRootUpdated) EventType() string { return TypeAirdropRootUpdated }

func (e AirdropRootUpdated) Event() *types.Event {
	return &types.Event{Type: TypeAirdropRootUpdated, Attributes: map[string]string{
		"old": formatHash(e.Old),
		"new": formatHash(e.New),
	}}
}

type AirdropStatusUpdated struct {
	Active bool
}

func (AirdropStatusUpdated) EventType() string { return TypeAirdropStatusUpdated }

func (e AirdropStatusUpdated) Event() *types.Event {
	return &types.Event{Type: TypeAirdropStatusUpdated, Attributes: map[string]string{
		"active": strconv.FormatBool(e.Active),
	}}
}

// AirdropClaimed records a successful claim. Submitter differs from Account
// when the claim was relayed on the account's behalf.
type AirdropClaimed struct {
	Account   [20]byte
	Amount    *big.Int
	Submitter [20]byte
}

func (AirdropClaimed) EventType() string { return TypeAirdropClaimed }

func (e AirdropClaimed) Event() *types.Event {
	return &types.Event{Type: TypeAirdropClaimed, Attributes: map[string]string{
		"account":   formatAccount(e.Account),
		"amount":    formatAmount(e.Amount),
		"submitter": formatAccount(e.Submitter),
	}}
}

type AirdropRecovered struct {
	To     [20]byte
	Amount *big.Int
}

func (AirdropRecovered) EventType() string { return TypeAirdropRecovered }

func (e AirdropRecovered) Event() *types.Event {
	return &types.Event{Type: TypeAirdropRecovered, Attributes: map[string]string{
		"to":     formatAccount(e.To),
		"amount": formatAmount(e.Amount),
	}}
}
