// Package recerr defines the error taxonomy shared by the recording components.
package recerr

import (
	"errors"
	"fmt"
)

// Kind classifies a recording error
type Kind string

const (
	KindBroker                  Kind = "BROKER_ERROR"
	KindUserCancelled           Kind = "USER_CANCELLED"
	KindCancelled               Kind = "CANCELLED"
	KindBrokerLost              Kind = "BROKER_LOST"
	KindBrokerEndedUnexpectedly Kind = "BROKER_ENDED_UNEXPECTEDLY"
	KindConfig                  Kind = "CONFIG_ERROR"
	KindRuntime                 Kind = "RUNTIME_ERROR"
	KindInvalidTransition       Kind = "INVALID_TRANSITION"
)

// Error is a recording error with a kind, the failing operation and
// optional guidance for the user
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Help    string
	Cause   error
}

// Error implements error interface
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// WithHelp attaches user guidance to the error
func (e *Error) WithHelp(help string) *Error {
	e.Help = help
	return e
}

// Sentinels for errors.Is
var (
	ErrBroker                  = &Error{Kind: KindBroker}
	ErrUserCancelled           = &Error{Kind: KindUserCancelled}
	ErrCancelled               = &Error{Kind: KindCancelled}
	ErrBrokerLost              = &Error{Kind: KindBrokerLost}
	ErrBrokerEndedUnexpectedly = &Error{Kind: KindBrokerEndedUnexpectedly}
	ErrConfig                  = &Error{Kind: KindConfig}
	ErrRuntime                 = &Error{Kind: KindRuntime}
	ErrInvalidTransition       = &Error{Kind: KindInvalidTransition}
)

// New creates an error of the given kind
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap wraps an existing error with a kind
func Wrap(err error, kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op, Cause: err}
}

// Common error constructors
func Broker(op string, err error) *Error {
	return Wrap(err, KindBroker, op)
}

func UserCancelled(op string) *Error {
	return New(KindUserCancelled, op, "the request was dismissed")
}

func Cancelled(op string) *Error {
	return New(KindCancelled, op, "cancelled")
}

func BrokerLost(op string) *Error {
	return New(KindBrokerLost, op, "the capture broker disappeared from the bus")
}

func BrokerEndedUnexpectedly(op string) *Error {
	return New(KindBrokerEndedUnexpectedly, op, "the capture broker ended the interaction")
}

func Config(op, message string) *Error {
	return New(KindConfig, op, message)
}

func Runtime(op string, err error) *Error {
	return Wrap(err, KindRuntime, op)
}

func InvalidTransition(op string, from fmt.Stringer) *Error {
	return New(KindInvalidTransition, op, fmt.Sprintf("not allowed in state %s", from))
}

// KindOf returns the kind of the first *Error in the chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsCancelled reports whether err is a cancellation by the user, either
// through the broker dialog or through Cancel. Such results are silent.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrUserCancelled)
}

// HelpOf returns the first help text found in the chain
func HelpOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Help != "" {
			return e.Help
		}
		err = e.Cause
	}
	return ""
}
