package state

import (
	"fmt"
	"math/big"

	"tokenflow/native/vesting"
)

const vestingSchedulePrefix = "vesting/schedule/"

var vestingCommittedKey = []byte("vesting/committed")

func (m *Manager) VestingSchedule(beneficiary [20]byte) (*vesting.Schedule, bool, error) {
	schedule := new(vesting.Schedule)
	ok, err := m.KVGet(accountKey(vestingSchedulePrefix, beneficiary), schedule)
	if err != nil || !ok {
		return nil, false, err
	}
	if schedule.TotalAmount == nil {
		schedule.TotalAmount = big.NewInt(0)
	}
	if schedule.Released == nil {
		schedule.Released = big.NewInt(0)
	}
	return schedule, true, nil
}

func (m *Manager) PutVestingSchedule(schedule *vesting.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("state: nil vesting schedule")
	}
	return m.KVPut(accountKey(vestingSchedulePrefix, schedule.Beneficiary), schedule)
}

// VestingCommitted returns the aggregate unreleased commitment.
func (m *Manager) VestingCommitted() (*big.Int, error) {
	committed := new(big.Int)
	ok, err := m.KVGet(vestingCommittedKey, committed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return committed, nil
}

func (m *Manager) SetVestingCommitted(amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative vesting commitment")
	}
	return m.KVPut(vestingCommittedKey, amount)
}
