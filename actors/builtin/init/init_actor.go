package init

import (
	addr "github.com/filecoin-project/go-address"
	rtt "github.com/filecoin-project/go-state-types/rt"
	cid "github.com/ipfs/go-cid"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
	"github.com/borroe/borroe-actors/actors/serde"
)

// The init actor uniquely has the power to create new actors.
// It maintains a table resolving pubkey and temporary actor addresses to the canonical ID-addresses.
type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		builtin.MethodConstructor: a.Constructor,
		2:                         a.Exec,
	}
}

func (a Actor) Code() cid.Cid {
	return builtin.InitActorCodeID
}

func (a Actor) IsSingleton() bool {
	return true
}

func (a Actor) State() interface{} {
	return new(State)
}

var _ runtime.VMActor = Actor{}

func (a Actor) Constructor(rt runtime.Runtime, _ *runtime.EmptyValue) *runtime.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.SystemActorAddr)
	rt.State().Create(ConstructState(rt.NetworkName()))
	return nil
}

type ExecParams struct {
	CodeCID           cid.Cid
	ConstructorParams serde.RawBytes
}

type ExecReturn struct {
	IDAddress     addr.Address // The canonical ID-based address for the actor.
	RobustAddress addr.Address // A more expensive but re-org-safe address for the newly created actor.
}

func (a Actor) Exec(rt runtime.Runtime, params *ExecParams) *ExecReturn {
	rt.ValidateImmediateCallerAcceptAny()
	callerCodeCID, ok := rt.GetActorCodeCID(rt.Message().Caller())
	builtin.RequireState(rt, ok, "no code for actor at %s", rt.Message().Caller())
	if !canExec(callerCodeCID, params.CodeCID) {
		rt.Abortf(exitcode.ErrForbidden, "called type %v cannot exec actor type %v", callerCodeCID, params.CodeCID)
	}

	// Compute a re-org-stable address.
	// This address exists for use by messages coming from outside the system, in order to
	// stably address the newly created actor even if a chain re-org causes it to end up with
	// a different ID.
	uniqueAddress := rt.NewActorAddress()

	// Allocate an ID for this actor.
	// Store mapping of pubkey or actor address to actor ID
	var st State
	var idAddr addr.Address
	rt.State().Transaction(&st, func() {
		var err error
		idAddr, err = st.MapAddressToNewID(uniqueAddress)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to allocate ID address")
	})

	// Create an empty actor.
	rt.CreateActor(params.CodeCID, idAddr)

	// Invoke constructor.
	_, code := rt.Send(idAddr, builtin.MethodConstructor, params.ConstructorParams)
	builtin.RequireSuccess(rt, code, "constructor failed")

	rt.Log(builtin.GetActorLogLevel(a, rtt.DEBUG), "created %s actor %v (%v)", builtin.ActorNameByCode(params.CodeCID), idAddr, uniqueAddress)
	return &ExecReturn{IDAddress: idAddr, RobustAddress: uniqueAddress}
}

func canExec(callerCodeID cid.Cid, execCodeID cid.Cid) bool {
	switch execCodeID {
	case builtin.TokenActorCodeID, builtin.VestingActorCodeID:
		// Deployed by an external party.
		return builtin.IsPrincipal(callerCodeID)
	default:
		// Accounts are created implicitly by the VM, singletons at genesis.
		return false
	}
}
