package services

import (
	"errors"
	"fmt"

	"github.com/example/retailpulse/internal/repository"
)

// ErrorKind classifies service failures. Handlers map each kind to an HTTP status.
type ErrorKind string

const (
	KindResourceNotFound                 ErrorKind = "ResourceNotFound"
	KindInvalidCredentials               ErrorKind = "InvalidCredentials"
	KindInvalidOrExpiredConfirmationCode ErrorKind = "InvalidOrExpiredConfirmationCode"
	KindResendLimitExceeded              ErrorKind = "ResendLimitExceeded"
	KindInsufficientStock                ErrorKind = "InsufficientStock"
	KindEmptyCart                        ErrorKind = "EmptyCart"
	KindUnverifiedOtp                    ErrorKind = "UnverifiedOtp"
	KindDuplicateUser                    ErrorKind = "DuplicateUser"
	KindInvalidInput                     ErrorKind = "InvalidInput"
	KindPaymentGateway                   ErrorKind = "PaymentGateway"
)

// Error is a domain failure carrying a kind and a human readable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmptyCart) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrResourceNotFound                 = &Error{Kind: KindResourceNotFound}
	ErrInvalidCredentials               = &Error{Kind: KindInvalidCredentials}
	ErrInvalidOrExpiredConfirmationCode = &Error{Kind: KindInvalidOrExpiredConfirmationCode}
	ErrResendLimitExceeded              = &Error{Kind: KindResendLimitExceeded}
	ErrInsufficientStock                = &Error{Kind: KindInsufficientStock}
	ErrEmptyCart                        = &Error{Kind: KindEmptyCart}
	ErrUnverifiedOtp                    = &Error{Kind: KindUnverifiedOtp}
	ErrDuplicateUser                    = &Error{Kind: KindDuplicateUser}
	ErrInvalidInput                     = &Error{Kind: KindInvalidInput}
	ErrPaymentGateway                   = &Error{Kind: KindPaymentGateway}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// notFoundOr turns repository.ErrNotFound into a ResourceNotFound error and
// passes anything else through.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindResourceNotFound, format, args...)
	}
	return err
}
