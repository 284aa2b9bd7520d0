package common

import (
	"errors"
	"fmt"

	"tokenflow/crypto"
)

// Kind classifies a failure so transports can map it to a stable code.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindState
	KindProof
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindProof:
		return "proof"
	case KindAuthorization:
		return "authorization"
	default:
		return "internal"
	}
}

// Error is a sentinel failure carrying its classification.
type Error struct {
	Kind Kind
	msg  string
}

// NewError constructs a classified sentinel error.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Classified is implemented by structured errors that know their kind.
type Classified interface {
	ErrorKind() Kind
}

func (e *Error) ErrorKind() Kind { return e.Kind }

// KindOf walks the error chain and returns the first classification found.
// Unclassified errors are reported as internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	return KindInternal
}

var (
	ErrZeroAddress   = NewError(KindValidation, "zero address")
	ErrZeroAmount    = NewError(KindValidation, "amount must be positive")
	ErrReentrantCall = NewError(KindState, "reentrant call")
	ErrSystemPaused  = NewError(KindAuthorization, "system paused")
	ErrUnauthorized  = NewError(KindAuthorization, "unauthorized")
)

// UnauthorizedError reports the caller and the capability it lacked.
type UnauthorizedError struct {
	Caller     [20]byte
	Capability Capability
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s lacks %s", crypto.FormatAccount(e.Caller), e.Capability)
}

func (e *UnauthorizedError) Unwrap() error   { return ErrUnauthorized }
func (e *UnauthorizedError) ErrorKind() Kind { return KindAuthorization }
