package services

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a rejected operation. Every kind is rejected before any
// mutation; AlreadyInState is a no-op with an explanatory message rather than
// a hard failure.
type Kind int

const (
	KindValidation Kind = iota
	KindPermissionDenied
	KindInsufficientFunds
	KindNotFound
	KindAlreadyExists
	KindAlreadyInState
	KindCooldownActive
)

// Error is a user-facing rejection from a core operation.
type Error struct {
	Kind      Kind
	Message   string
	Remaining time.Duration // set for KindCooldownActive
}

func (e *Error) Error() string { return e.Message }

// IsKind reports whether err is a service Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func permissionf(format string, args ...any) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func insufficientf(format string, args ...any) error {
	return &Error{Kind: KindInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func alreadyExistsf(format string, args ...any) error {
	return &Error{Kind: KindAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

func alreadyInStatef(format string, args ...any) error {
	return &Error{Kind: KindAlreadyInState, Message: fmt.Sprintf(format, args...)}
}

func cooldownErr(remaining time.Duration) error {
	return &Error{Kind: KindCooldownActive, Message: "cooldown active", Remaining: remaining}
}
