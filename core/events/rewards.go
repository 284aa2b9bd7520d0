package events

import (
	"math/big"

	"tokenflow/core/types"
)

// TypeRewardDistributed is emitted for every reward leg paid from the pool.
const TypeRewardDistributed = "rewards.distributed"

type RewardDistributed struct {
	Recipient  [20]byte
	Amount     *big.Int
	ActivityID string
	Timestamp  uint64
}

func (RewardDistributed) EventType() string { return TypeRewardDistributed }

func (e RewardDistributed) Event() *types.Event {
	return &types.Event{Type: TypeRewardDistributed, Attributes: map[string]string{
		"recipient":  formatAccount(e.Recipient),
		"amount":     formatAmount(e.Amount),
		"activityId": e.ActivityID,
		"timestamp":  formatUint(e.Timestamp),
	}}
}
