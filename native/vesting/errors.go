package vesting

import (
	"errors"
	"fmt"
	"math/big"

	"tokenflow/native/common"
)

var (
	ErrScheduleExists         = common.NewError(common.KindState, "vesting: schedule already exists")
	ErrInvalidDuration        = common.NewError(common.KindValidation, "vesting: invalid duration")
	ErrInsufficientFunding    = common.NewError(common.KindState, "vesting: insufficient unallocated funding")
	ErrNoTokensToClaim        = common.NewError(common.KindState, "vesting: no tokens to claim")
	ErrScheduleNotFound       = common.NewError(common.KindState, "vesting: schedule not found")
	ErrScheduleNotRevocable   = common.NewError(common.KindState, "vesting: schedule not revocable")
	ErrScheduleAlreadyRevoked = common.NewError(common.KindState, "vesting: schedule already revoked")

	errNilState  = errors.New("vesting: state not configured")
	errNilLedger = errors.New("vesting: ledger not configured")
)

// InsufficientFundingError reports the unallocated vault balance against the
// amount a new schedule would commit.
type InsufficientFundingError struct {
	Available *big.Int
	Required  *big.Int
}

func (e *InsufficientFundingError) Error() string {
	return fmt.Sprintf("vesting: insufficient unallocated funding: available %s, required %s", e.Available, e.Required)
}

func (e *InsufficientFundingError) Unwrap() error          { return ErrInsufficientFunding }
func (e *InsufficientFundingError) ErrorKind() common.Kind { return common.KindState }
