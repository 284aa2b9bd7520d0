package events

import (
	"math/big"
	"strconv"

	"tokenflow/core/types"
)

const (
	// TypeVestingCreated is emitted when a schedule is recorded.
	TypeVestingCreated = "vesting.created"
	// TypeVestingReleased is emitted when vested tokens leave the vault.
	TypeVestingReleased = "vesting.released"
	// TypeVestingRevoked is emitted when an administrator revokes a schedule.
	TypeVestingRevoked = "vesting.revoked"
)

type VestingCreated struct {
	Beneficiary [20]byte
	Amount      *big.Int
	Start       uint64
	Cliff       uint64
	Duration    uint64
	Revocable   bool
}

func (VestingCreated) EventType() string { return TypeVestingCreated }

func (e VestingCreated) Event() *types.Event {
	return &types.Event{Type: TypeVestingCreated, Attributes: map[string]string{
		"beneficiary": formatAccount(e.Beneficiary),
		"amount":      formatAmount(e.Amount),
		"start":       formatUint(e.Start),
		"cliff":       formatUint(e.Cliff),
		"duration":    formatUint(e.Duration),
		"revocable":   strconv.FormatBool(e.Revocable),
	}}
}

type VestingReleased struct {
	Beneficiary [20]byte
	Amount      *big.Int
}

func (VestingReleased) EventType() string { return TypeVestingReleased }

func (e VestingReleased) Event() *types.Event {
	return &types.Event{Type: TypeVestingReleased, Attributes: map[string]string{
		"beneficiary": formatAccount(e.Beneficiary),
		"amount":      formatAmount(e.Amount),
	}}
}

type VestingRevoked struct {
	Beneficiary [20]byte
	Vested      *big.Int
	Forfeited   *big.Int
	Recipient   [20]byte
}

func (VestingRevoked) EventType() string { return TypeVestingRevoked }

func (e VestingRevoked) Event() *types.Event {
	return &types.Event{Type: TypeVestingRevoked, Attributes: map[string]string{
		"beneficiary": formatAccount(e.Beneficiary),
		"vested":      formatAmount(e.Vested),
		"forfeited":   formatAmount(e.Forfeited),
		"recipient":   formatAccount(e.Recipient),
	}}
}
