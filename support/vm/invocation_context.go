package vm

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"reflect"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	rtt "github.com/filecoin-project/go-state-types/rt"
	cid "github.com/ipfs/go-cid"
	"github.com/minio/sha256-simd"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
	"github.com/borroe/borroe-actors/actors/serde"
)

var typeOfRuntimeInterface = reflect.TypeOf((*runtime.Runtime)(nil)).Elem()

// Context for an individual message invocation, including inter-actor sends.
type invocationContext struct {
	vm               *VM
	topLevel         *topLevelContext
	msg              internalMessage
	callerValidated  bool
	allowSideEffects bool
	invocation       *Invocation
}

// Context for a top-level invocation sequence
type topLevelContext struct {
	originatorStableAddress addr.Address // Stable (public key) address of the top-level message sender.
	originatorCallSeq       uint64       // Call sequence number of the top-level message.
	newActorAddressCount    uint64       // Count of calls to NewActorAddress (mutable).
}

// A record of a message and its outcome, including the messages it sent.
type Invocation struct {
	Msg            *internalMessage
	Exitcode       exitcode.ExitCode
	Reason         string // Abort message when the exit code is not Ok.
	Ret            serde.RawBytes
	SubInvocations []*Invocation
}

func newInvocationContext(vm *VM, topLevel *topLevelContext, msg internalMessage) *invocationContext {
	return &invocationContext{
		vm:               vm,
		topLevel:         topLevel,
		msg:              msg,
		callerValidated:  false,
		allowSideEffects: true,
		invocation:       &Invocation{Msg: &msg},
	}
}

var _ runtime.Runtime = (*invocationContext)(nil)
var _ runtime.StateHandle = (*invocationContext)(nil)

// Dispatches the message to the receiving actor, converting aborts into exit codes.
func (ic *invocationContext) invoke() (ret serde.RawBytes, errcode exitcode.ExitCode) {
	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(abort)
			if !ok {
				panic(r)
			}
			ic.vm.logger.Debug().Stringer("exitcode", a.code).Str("to", ic.msg.to.String()).Msg(a.msg)
			ret, errcode = nil, a.code
			ic.invocation.Reason = a.msg
		}
		ic.invocation.Exitcode = errcode
		ic.invocation.Ret = ret
	}()

	// resolve the target address
	to, found := ic.vm.NormalizeAddress(ic.msg.to)
	if !found {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "actor %s not found", ic.msg.to)
	}
	ic.msg.to = to
	ic.invocation.Msg.to = to

	toActor, found := ic.vm.GetActor(to)
	if !found {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "actor %s not found", to)
	}

	// A bare send carries no value and reaches no code.
	if ic.msg.method == builtin.MethodSend {
		return nil, exitcode.Ok
	}

	actorImpl, ok := ic.vm.getActorImpl(toActor.Code)
	if !ok {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "actor implementation not found for code %v", toActor.Code)
	}
	exports := actorImpl.Exports()
	if int(ic.msg.method) >= len(exports) || exports[ic.msg.method] == nil {
		ic.Abortf(exitcode.SysErrInvalidMethod, "no method %d on actor %v", ic.msg.method, to)
	}
	method := reflect.ValueOf(exports[ic.msg.method])
	methodType := method.Type()
	if methodType.NumIn() != 2 || methodType.In(0) != typeOfRuntimeInterface || methodType.In(1).Kind() != reflect.Ptr {
		ic.Abortf(exitcode.SysErrInvalidMethod, "method %d on actor %v has an invalid signature", ic.msg.method, to)
	}

	// Params cross the boundary in serialized form, as they would on chain.
	param := reflect.New(methodType.In(1).Elem())
	if ic.msg.params != nil {
		data, err := serde.Serialize(ic.msg.params)
		if err != nil {
			ic.Abortf(exitcode.SysErrSerialization, "failed to serialize params: %s", err)
		}
		if err := serde.Deserialize(data, param.Interface()); err != nil {
			ic.Abortf(exitcode.SysErrSerialization, "failed to deserialize params: %s", err)
		}
	}

	out := method.Call([]reflect.Value{reflect.ValueOf(ic), param})
	if !ic.callerValidated {
		ic.Abortf(exitcode.SysErrorIllegalActor, "caller validation not performed by method %d of %v", ic.msg.method, to)
	}

	data, err := serde.Serialize(out[0].Interface())
	if err != nil {
		ic.Abortf(exitcode.SysErrSerialization, "failed to serialize return value: %s", err)
	}
	return data, exitcode.Ok
}

///// Implementation of the runtime API /////

func (ic *invocationContext) Message() runtime.Message {
	return ic.msg
}

func (ic *invocationContext) NetworkName() string {
	return ic.vm.networkName
}

func (ic *invocationContext) CurrEpoch() abi.ChainEpoch {
	return ic.vm.currentEpoch
}

func (ic *invocationContext) ValidateImmediateCallerAcceptAny() {
	ic.assertf(!ic.callerValidated, "caller has been double validated")
	ic.callerValidated = true
}

func (ic *invocationContext) ValidateImmediateCallerIs(addrs ...addr.Address) {
	ic.assertf(!ic.callerValidated, "caller has been double validated")
	ic.callerValidated = true
	for _, a := range addrs {
		if a == ic.msg.from {
			return
		}
	}
	ic.Abortf(exitcode.ErrForbidden, "caller address %v forbidden, allowed: %v", ic.msg.from, addrs)
}

func (ic *invocationContext) ValidateImmediateCallerType(types ...cid.Cid) {
	ic.assertf(!ic.callerValidated, "caller has been double validated")
	ic.callerValidated = true

	caller, found := ic.vm.GetActor(ic.msg.from)
	ic.assertf(found, "no actor at caller %v", ic.msg.from)
	for _, t := range types {
		if t.Equals(caller.Code) {
			return
		}
	}
	ic.Abortf(exitcode.ErrForbidden, "caller type %v forbidden, allowed: %v", caller.Code, types)
}

func (ic *invocationContext) GetActorCodeCID(a addr.Address) (cid.Cid, bool) {
	act, found := ic.vm.GetActor(a)
	if !found {
		return cid.Undef, false
	}
	return act.Code, true
}

func (ic *invocationContext) ResolveAddress(a addr.Address) (addr.Address, bool) {
	return ic.vm.NormalizeAddress(a)
}

func (ic *invocationContext) State() runtime.StateHandle {
	return ic
}

func (ic *invocationContext) Store() runtime.Store {
	return &vmStore{ic: ic}
}

func (ic *invocationContext) Send(toAddr addr.Address, methodNum abi.MethodNum, params interface{}) (runtime.SendReturn, exitcode.ExitCode) {
	if !ic.allowSideEffects {
		ic.Abortf(exitcode.SysErrorIllegalActor, "side-effect within transaction")
	}

	newMsg := internalMessage{
		from:   ic.msg.to,
		to:     toAddr,
		method: methodNum,
		params: params,
	}

	// Changes made by a failed send are discarded, leaving the caller free to recover.
	prior := ic.vm.checkpoint()
	newCtx := newInvocationContext(ic.vm, ic.topLevel, newMsg)
	ret, code := newCtx.invoke()
	ic.invocation.SubInvocations = append(ic.invocation.SubInvocations, newCtx.invocation)
	if code != exitcode.Ok {
		ic.vm.rollback(prior)
	}
	return &returnWrapper{ret}, code
}

func (ic *invocationContext) Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	panic(abort{errExitCode, fmt.Sprintf(msg, args...)})
}

func (ic *invocationContext) NewActorAddress() addr.Address {
	var buf bytes.Buffer
	buf.Write(ic.topLevel.originatorStableAddress.Bytes())
	_ = binary.Write(&buf, binary.BigEndian, ic.topLevel.originatorCallSeq)
	_ = binary.Write(&buf, binary.BigEndian, ic.topLevel.newActorAddressCount)
	ic.topLevel.newActorAddressCount++

	sum := sha256.Sum256(buf.Bytes())
	actorAddr, err := addr.NewActorAddress(sum[:])
	if err != nil {
		ic.Abortf(exitcode.SysErrInternal, "failed to create actor address: %s", err)
	}
	return actorAddr
}

func (ic *invocationContext) CreateActor(codeID cid.Cid, a addr.Address) {
	if !ic.allowSideEffects {
		ic.Abortf(exitcode.SysErrorIllegalActor, "side-effect within transaction")
	}
	if ic.msg.to != builtin.InitActorAddr {
		ic.Abortf(exitcode.SysErrForbidden, "actor %v is not allowed to create actors", ic.msg.to)
	}
	if _, ok := ic.vm.getActorImpl(codeID); !ok {
		ic.Abortf(exitcode.SysErrorIllegalArgument, "can only create built-in actors, not %v", codeID)
	}
	if _, found := ic.vm.GetActor(a); found {
		ic.Abortf(exitcode.SysErrorIllegalArgument, "actor %v already exists", a)
	}
	ic.vm.setActor(a, &TestActor{Head: ic.vm.emptyObject, Code: codeID})
}

func (ic *invocationContext) EmitEvent(eventType string, payload interface{}) {
	if !ic.allowSideEffects {
		ic.Abortf(exitcode.SysErrorIllegalActor, "side-effect within transaction")
	}
	data, err := serde.Serialize(payload)
	if err != nil {
		ic.Abortf(exitcode.SysErrSerialization, "failed to serialize %s event: %s", eventType, err)
	}
	ic.vm.events = append(ic.vm.events, Event{
		Emitter: ic.msg.to,
		Epoch:   ic.vm.currentEpoch,
		Type:    eventType,
		Payload: data,
	})
}

func (ic *invocationContext) Log(level rtt.LogLevel, msg string, args ...interface{}) {
	ic.vm.logActor(ic.msg.to, level, fmt.Sprintf(msg, args...))
}

func (ic *invocationContext) Context() context.Context {
	return ic.vm.ctx
}

///// State handle implementation /////

func (ic *invocationContext) Create(obj interface{}) {
	act, found := ic.vm.GetActor(ic.msg.to)
	ic.assertf(found, "no actor at %v", ic.msg.to)
	if !act.Head.Equals(ic.vm.emptyObject) {
		ic.Abortf(exitcode.SysErrorIllegalActor, "failed to construct actor state: already initialized")
	}
	ic.replace(obj)
}

func (ic *invocationContext) Readonly(obj interface{}) {
	ic.loadState(obj)
}

func (ic *invocationContext) Transaction(obj interface{}, f func()) {
	if !ic.allowSideEffects {
		ic.Abortf(exitcode.SysErrorIllegalActor, "nested transaction")
	}
	ic.loadState(obj)
	ic.allowSideEffects = false
	f()
	ic.allowSideEffects = true
	ic.replace(obj)
}

func (ic *invocationContext) loadState(obj interface{}) {
	act, found := ic.vm.GetActor(ic.msg.to)
	ic.assertf(found, "no actor at %v", ic.msg.to)
	if act.Head.Equals(ic.vm.emptyObject) {
		ic.Abortf(exitcode.SysErrorIllegalActor, "failed to load undefined state")
	}
	resetValue(obj)
	if err := ic.vm.store.Get(ic.vm.ctx, act.Head, obj); err != nil {
		ic.Abortf(exitcode.SysErrSerialization, "failed to load state for actor %s: %s", ic.msg.to, err)
	}
}

func (ic *invocationContext) replace(obj interface{}) {
	head, err := ic.vm.store.Put(ic.vm.ctx, obj)
	if err != nil {
		ic.Abortf(exitcode.SysErrSerialization, "failed to store state: %s", err)
	}
	ic.vm.setActorHead(ic.msg.to, head)
}

func (ic *invocationContext) assertf(predicate bool, msg string, args ...interface{}) {
	if !predicate {
		ic.Abortf(exitcode.SysErrorIllegalActor, msg, args...)
	}
}

///// Store implementation /////

type vmStore struct {
	ic *invocationContext
}

func (s *vmStore) Get(c cid.Cid, o interface{}) bool {
	if err := s.ic.vm.store.Get(s.ic.vm.ctx, c, o); err != nil {
		return false
	}
	return true
}

func (s *vmStore) Put(x interface{}) cid.Cid {
	c, err := s.ic.vm.store.Put(s.ic.vm.ctx, x)
	if err != nil {
		s.ic.Abortf(exitcode.SysErrSerialization, "failed to put object: %s", err)
	}
	return c
}

type returnWrapper struct {
	ret serde.RawBytes
}

func (r *returnWrapper) Into(o interface{}) error {
	if len(r.ret) == 0 {
		return nil
	}
	return serde.Deserialize(r.ret, o)
}

// Zeroes the value o points to, so that decoding does not merge into stale fields.
func resetValue(o interface{}) {
	v := reflect.ValueOf(o)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}
