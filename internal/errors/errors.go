package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a broker failure so collaborators can render it.
type Kind string

const (
	KindAccessDenied     Kind = "ACCESS_DENIED"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindStoreFailure     Kind = "STORE_FAILURE"
)

// BrokerError is the structured fault returned by every broker operation.
type BrokerError struct {
	Kind    Kind
	Op      string
	Rule    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *BrokerError) Error() string {
	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("%s (rule: %s)", msg, e.Rule)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// Is matches another *BrokerError by kind, so errors.Is(err, ErrNotFound)
// works for any not-found fault.
func (e *BrokerError) Is(target error) bool {
	t, ok := target.(*BrokerError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrAccessDenied     = &BrokerError{Kind: KindAccessDenied}
	ErrNotFound         = &BrokerError{Kind: KindNotFound}
	ErrConflict         = &BrokerError{Kind: KindConflict}
	ErrValidationFailed = &BrokerError{Kind: KindValidationFailed}
	ErrStoreFailure     = &BrokerError{Kind: KindStoreFailure}
)

// NewAccessDenied reports that rule refused op.
func NewAccessDenied(op, rule string) *BrokerError {
	return &BrokerError{Kind: KindAccessDenied, Op: op, Rule: rule, Message: "access denied"}
}

func NewNotFound(op, format string, args ...interface{}) *BrokerError {
	return &BrokerError{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(op, format string, args ...interface{}) *BrokerError {
	return &BrokerError{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NewValidation(op, format string, args ...interface{}) *BrokerError {
	return &BrokerError{Kind: KindValidationFailed, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewStoreFailure wraps an opaque persistence error.
func NewStoreFailure(op string, err error) *BrokerError {
	return &BrokerError{Kind: KindStoreFailure, Op: op, Message: "store failure", Err: err}
}

// KindOf returns the kind of err, or "" when err is not a broker error.
func KindOf(err error) Kind {
	var be *BrokerError
	if stderrors.As(err, &be) {
		return be.Kind
	}
	return ""
}
