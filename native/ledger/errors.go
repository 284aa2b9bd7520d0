package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"tokenflow/crypto"
	"tokenflow/native/common"
)

var (
	ErrInvalidAmount       = common.NewError(common.KindValidation, "ledger: amount must not be negative")
	ErrSupplySealed        = common.NewError(common.KindState, "ledger: total supply is sealed")
	ErrInsufficientBalance = common.NewError(common.KindState, "ledger: insufficient balance")
	ErrTaxRateTooHigh      = common.NewError(common.KindValidation, "ledger: tax rate exceeds maximum")
	ErrProtectedAccount    = common.NewError(common.KindValidation, "ledger: account exemption is protected")
	ErrPoolAccount         = common.NewError(common.KindValidation, "ledger: pool accounts move funds only through distribution")
	ErrReservoirNotSet     = common.NewError(common.KindState, "ledger: reservoir not configured")

	errNilState = errors.New("ledger: state not configured")
)

// InsufficientBalanceError carries the shortfall of a debit.
type InsufficientBalanceError struct {
	Account  [20]byte
	Balance  *big.Int
	Required *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("ledger: insufficient balance for %s: have %s, need %s",
		crypto.FormatAccount(e.Account), e.Balance, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error          { return ErrInsufficientBalance }
func (e *InsufficientBalanceError) ErrorKind() common.Kind { return common.KindState }

// TaxRateTooHighError reports a rejected tax rate.
type TaxRateTooHighError struct {
	RateBps uint32
	Max     uint32
}

func (e *TaxRateTooHighError) Error() string {
	return fmt.Sprintf("ledger: tax rate %d bps exceeds maximum %d bps", e.RateBps, e.Max)
}

func (e *TaxRateTooHighError) Unwrap() error          { return ErrTaxRateTooHigh }
func (e *TaxRateTooHighError) ErrorKind() common.Kind { return common.KindValidation }
