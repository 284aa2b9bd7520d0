package rewards

import (
	"errors"
	"fmt"
	"math/big"

	"tokenflow/native/common"
)

var (
	ErrInvalidRecipient = common.NewError(common.KindValidation, "rewards: invalid recipient")
	ErrEmptyBatch       = common.NewError(common.KindValidation, "rewards: empty batch")
	ErrArityMismatch    = common.NewError(common.KindValidation, "rewards: batch arity mismatch")
	ErrInsufficientPool = common.NewError(common.KindState, "rewards: insufficient pool balance")

	errNilLedger = errors.New("rewards: ledger not configured")
)

// InsufficientPoolError reports the shortfall of a distribution.
type InsufficientPoolError struct {
	Requested *big.Int
	Available *big.Int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("rewards: insufficient pool balance: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientPoolError) Unwrap() error          { return ErrInsufficientPool }
func (e *InsufficientPoolError) ErrorKind() common.Kind { return common.KindState }

// ArityMismatchError reports the lengths of a malformed batch.
type ArityMismatchError struct {
	Recipients  int
	Amounts     int
	ActivityIDs int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("rewards: batch arity mismatch: %d recipients, %d amounts, %d activity ids",
		e.Recipients, e.Amounts, e.ActivityIDs)
}

func (e *ArityMismatchError) Unwrap() error          { return ErrArityMismatch }
func (e *ArityMismatchError) ErrorKind() common.Kind { return common.KindValidation }

// BatchEntryError identifies the batch entry that failed validation.
type BatchEntryError struct {
	Index int
	Err   error
}

func (e *BatchEntryError) Error() string {
	return fmt.Sprintf("rewards: batch entry %d: %v", e.Index, e.Err)
}

func (e *BatchEntryError) Unwrap() error { return e.Err }
