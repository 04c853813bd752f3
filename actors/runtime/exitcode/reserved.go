package exitcode

import "strconv"

type ExitCode int64

func (x ExitCode) IsSuccess() bool {
	return x == Ok
}

func (x ExitCode) IsError() bool {
	return !x.IsSuccess()
}

// Whether an exit code indicates a message send failure.
// A send failure means that the caller's CallSeqNum is not incremented and the caller has not paid
// gas fees for the message (because the caller doesn't exist or can't afford it).
// A receipt with send failure does not indicate that the message (or another one carrying the same CallSeqNum)
// could not apply in the future, against a different state.
func (x ExitCode) IsSendFailure() bool {
	return x == SysErrSenderInvalid || x == SysErrSenderStateInvalid
}

// Implement error to trigger Go compiler checking of exit code return values.
func (x ExitCode) Error() string {
	return strconv.FormatInt(int64(x), 10)
}

func (x ExitCode) String() string {
	if name, ok := names[x]; ok {
		return name
	}
	return "ExitCode(" + strconv.FormatInt(int64(x), 10) + ")"
}

const (
	Ok = ExitCode(0)
	// None of the system error codes should ever be used by actors.

	// Indicates that the actor identified as the sender of a message is not valid as a message sender:
	// - not present in the state tree
	// - not an account actor
	SysErrSenderInvalid = ExitCode(1)

	// Indicates that the sender of a message is not in a state to send the message:
	// - invocation out of sequence (mismatched CallSeqNum)
	SysErrSenderStateInvalid = ExitCode(2)

	// Indicates failure to find a method in an actor.
	SysErrInvalidMethod = ExitCode(3)

	// Indicates the message receiver trapped (panicked).
	SysErrIllegalInstruction = ExitCode(4)

	// Indicates the receiver of a message is not valid (and cannot be implicitly created).
	SysErrInvalidReceiver = ExitCode(5)

	// Indicates that a message sender has insufficient balance for the value being sent.
	SysErrInsufficientFunds = ExitCode(6)

	// Indicates message execution (including subcalls) used more gas than the specified limit.
	SysErrOutOfGas = ExitCode(7)

	// Indicates a message execution is forbidden for the caller.
	SysErrForbidden = ExitCode(8)

	// Indicates actor code performed a disallowed operation. Disallowed operations include:
	// - mutating state outside of a state acquisition block
	// - failing to invoke caller validation
	// - aborting with a reserved exit code (including success or a system error).
	SysErrorIllegalActor = ExitCode(9)

	// Indicates an invalid argument passed to a runtime method.
	SysErrorIllegalArgument = ExitCode(10)

	// Indicates an object failed to de/serialize for storage.
	SysErrSerialization = ExitCode(11)

	// Reserved exit codes, do not use.
	SysErrorReserved1 = ExitCode(12)
	SysErrorReserved2 = ExitCode(13)
	SysErrorReserved3 = ExitCode(14)

	// Indicates something broken within the VM.
	SysErrInternal = ExitCode(15)
)

// The initial range of exit codes is reserved for system errors.
// Actors may define codes starting with this one.
const FirstActorErrorCode = ExitCode(16)
