package vm

import (
	"bytes"
	"fmt"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
	"github.com/borroe/borroe-actors/actors/serde"
)

//
// Invocation expectations
//

func ExpectObject(v interface{}) *objectExpectation {
	return &objectExpectation{v}
}

// distinguishes a non-expectation from an expectation of nil
type objectExpectation struct {
	val interface{}
}

func ExpectAddress(a addr.Address) *addr.Address                { return &a }
func ExpectExitCode(code exitcode.ExitCode) *exitcode.ExitCode { return &code }

// match by serialized encoding to avoid inconsistencies in internal representations of effectively equal objects
func (oe objectExpectation) matches(obj interface{}) bool {
	if oe.val == nil || obj == nil {
		return oe.val == nil && obj == nil
	}
	expected, err := serde.Serialize(oe.val)
	if err != nil {
		return false
	}
	actual, err := serde.Serialize(obj)
	if err != nil {
		return false
	}
	return bytes.Equal(expected, actual)
}

var okExitCode = exitcode.Ok
var ExpectOK = &okExitCode

type ExpectInvocation struct {
	To       addr.Address
	Method   abi.MethodNum
	Exitcode exitcode.ExitCode

	From           *addr.Address
	Params         *objectExpectation
	Ret            *objectExpectation
	SubInvocations []ExpectInvocation
}

func (ei ExpectInvocation) Matches(t testing.TB, invocation *Invocation) {
	ei.matches(t, "", invocation)
}

func (ei ExpectInvocation) matches(t testing.TB, breadcrumb string, invocation *Invocation) {
	identifier := fmt.Sprintf("%s[%s:%d]", breadcrumb, invocation.Msg.to, invocation.Msg.method)

	// mismatch of to or method probably indicates skipped message or messages out of order. halt.
	require.Equal(t, ei.To, invocation.Msg.to, "%s unexpected `to` address", identifier)
	require.Equal(t, ei.Method, invocation.Msg.method, "%s unexpected method", identifier)

	// other expectations are optional
	if ei.From != nil {
		assert.Equal(t, *ei.From, invocation.Msg.from, "%s unexpected from address", identifier)
	}
	if ei.Params != nil {
		assert.True(t, ei.Params.matches(invocation.Msg.params), "%s params aren't equal (%v != %v)", identifier, ei.Params.val, invocation.Msg.params)
	}
	if ei.SubInvocations != nil {
		for i, invk := range invocation.SubInvocations {
			subidentifier := fmt.Sprintf("%s%d:", identifier, i)
			require.Greater(t, len(ei.SubInvocations), i, "%s unexpected subinvocation [%s:%d]", subidentifier, invk.Msg.to, invk.Msg.method)
			ei.SubInvocations[i].matches(t, subidentifier, invk)
		}
		missingInvocations := len(ei.SubInvocations) - len(invocation.SubInvocations)
		if missingInvocations > 0 {
			missingIndex := len(invocation.SubInvocations)
			missingExpect := ei.SubInvocations[missingIndex]
			require.Failf(t, "missing invocation", "%s%d: expected invocation [%s:%d]", identifier, missingIndex, missingExpect.To, missingExpect.Method)
		}
	}

	// expect results
	assert.Equal(t, ei.Exitcode, invocation.Exitcode, "%s unexpected exitcode", identifier)
	if ei.Ret != nil {
		var ret interface{}
		if len(invocation.Ret) > 0 {
			ret = invocation.Ret
		}
		assert.True(t, ei.Ret.matches(ret), "%s unexpected return value (%v != %s)", identifier, ei.Ret.val, invocation.Ret)
	}
}

// Applies a message that must succeed, decoding its return value into out when out is not nil.
func ApplyOk(t testing.TB, v *VM, from, to addr.Address, method abi.MethodNum, params interface{}, out interface{}) {
	res := v.ApplyMessage(from, to, method, params)
	require.Equal(t, exitcode.Ok, res.Code, "message to %v method %d failed: %s", to, method, res.Reason)
	if out != nil {
		require.NoError(t, serde.Deserialize(res.Ret, out))
	}
}

// Applies a message that must fail with the given exit code.
func ApplyCode(t testing.TB, v *VM, from, to addr.Address, method abi.MethodNum, params interface{}, expected exitcode.ExitCode) {
	res := v.ApplyMessage(from, to, method, params)
	require.Equal(t, expected, res.Code, "message to %v method %d: %s", to, method, res.Reason)
}

func ParamsForInvocation(t testing.TB, vm *VM, idxs ...int) interface{} {
	invocations := vm.Invocations()
	var invocation *Invocation
	for _, idx := range idxs {
		require.Greater(t, len(invocations), idx)
		invocation = invocations[idx]
		invocations = invocation.SubInvocations
	}
	require.NotNil(t, invocation)
	return invocation.Msg.params
}

// Returns the events of the given type emitted so far.
func EventsOfType(vm *VM, eventType string) []Event {
	var out []Event
	for _, ev := range vm.Events() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Decodes an event payload.
func (e Event) Decode(out interface{}) error {
	return serde.Deserialize(e.Payload, out)
}
