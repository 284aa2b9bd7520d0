package airdrop

import (
	"errors"
	"fmt"
	"math/big"

	"tokenflow/native/common"
)

var (
	ErrNotInitialized      = common.NewError(common.KindState, "airdrop: campaign not initialized")
	ErrInvalidRoot         = common.NewError(common.KindValidation, "airdrop: invalid merkle root")
	ErrInvalidDeadline     = common.NewError(common.KindValidation, "airdrop: deadline must be in the future")
	ErrNotActive           = common.NewError(common.KindState, "airdrop: campaign not active")
	ErrDeadlinePassed      = common.NewError(common.KindState, "airdrop: claim deadline passed")
	ErrDeadlineNotReached  = common.NewError(common.KindState, "airdrop: claim deadline not reached")
	ErrAlreadyClaimed      = common.NewError(common.KindState, "airdrop: already claimed")
	ErrInvalidProof        = common.NewError(common.KindProof, "airdrop: invalid merkle proof")
	ErrInsufficientBalance = common.NewError(common.KindState, "airdrop: insufficient vault balance")
	ErrInvalidAllocation   = common.NewError(common.KindValidation, "airdrop: invalid allocation")

	errNilState  = errors.New("airdrop: state not configured")
	errNilLedger = errors.New("airdrop: ledger not configured")
)

// InsufficientBalanceError reports a vault that cannot cover a claim.
type InsufficientBalanceError struct {
	Available *big.Int
	Required  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("airdrop: insufficient vault balance: available %s, required %s", e.Available, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error          { return ErrInsufficientBalance }
func (e *InsufficientBalanceError) ErrorKind() common.Kind { return common.KindState }
