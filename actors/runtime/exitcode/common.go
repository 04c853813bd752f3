package exitcode

import (
	"errors"

	"golang.org/x/xerrors"
)

// Common error codes that may be shared by different actors.
// Actors may also define their own codes, including redefining these values.

const (
	// Indicates a method parameter is invalid.
	ErrIllegalArgument = FirstActorErrorCode + iota
	// Indicates a requested resource does not exist.
	ErrNotFound
	// Indicates an action is disallowed.
	ErrForbidden
	// Indicates a balance of funds is insufficient.
	ErrInsufficientFunds
	// Indicates an actor's internal state is invalid.
	ErrIllegalState
	// Indicates de/serialization failure within actor code.
	ErrSerialization
	// Indicates the actor cannot handle this message.
	ErrUnhandledMessage
	// Indicates the actor failed with an unspecified error.
	ErrUnspecified
	// Indicates the actor failed a user-level assertion.
	ErrAssertionFailed

	// Common error codes stop here. If you define a common error code above
	// this value it will have conflicting interpretations.
	FirstActorSpecificExitCode = ExitCode(32)
)

var names = map[ExitCode]string{
	Ok:                       "Ok",
	SysErrSenderInvalid:      "SysErrSenderInvalid",
	SysErrSenderStateInvalid: "SysErrSenderStateInvalid",
	SysErrInvalidMethod:      "SysErrInvalidMethod",
	SysErrIllegalInstruction: "SysErrIllegalInstruction",
	SysErrInvalidReceiver:    "SysErrInvalidReceiver",
	SysErrInsufficientFunds:  "SysErrInsufficientFunds",
	SysErrOutOfGas:           "SysErrOutOfGas",
	SysErrForbidden:          "SysErrForbidden",
	SysErrorIllegalActor:     "SysErrorIllegalActor",
	SysErrorIllegalArgument:  "SysErrorIllegalArgument",
	SysErrSerialization:      "SysErrSerialization",
	SysErrInternal:           "SysErrInternal",
	ErrIllegalArgument:       "ErrIllegalArgument",
	ErrNotFound:              "ErrNotFound",
	ErrForbidden:             "ErrForbidden",
	ErrInsufficientFunds:     "ErrInsufficientFunds",
	ErrIllegalState:          "ErrIllegalState",
	ErrSerialization:         "ErrSerialization",
	ErrUnhandledMessage:      "ErrUnhandledMessage",
	ErrUnspecified:           "ErrUnspecified",
	ErrAssertionFailed:       "ErrAssertionFailed",
}

// Wrapf attaches an exit code to an error message.
// The code is recovered with Unwrap, and compared with errors.Is.
func (x ExitCode) Wrapf(msg string, args ...interface{}) error {
	return &wrapped{code: x, cause: xerrors.Errorf(msg, args...)}
}

// Wrap attaches an exit code to an existing error.
func (x ExitCode) Wrap(err error) error {
	return &wrapped{code: x, cause: err}
}

type wrapped struct {
	code  ExitCode
	cause error
}

func (w *wrapped) Error() string {
	// The code is not part of the message.
	return w.cause.Error()
}

// The cause is deliberately not exposed through Unwrap: an outer code shadows any code
// attached further down the chain.
func (w *wrapped) Is(target error) bool {
	if code, ok := target.(ExitCode); ok {
		return w.code == code
	}
	return false
}

// Unwrap extracts an exit code from an error, defaulting to the passed default exit code.
// A nil error maps to Ok.
func Unwrap(err error, defaultExitCode ExitCode) ExitCode {
	if err == nil {
		return Ok
	}
	var w *wrapped
	if errors.As(err, &w) {
		return w.code
	}
	var code ExitCode
	if errors.As(err, &code) {
		return code
	}
	return defaultExitCode
}
