package vm

import (
	"context"
	"fmt"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	rtt "github.com/filecoin-project/go-state-types/rt"
	cid "github.com/ipfs/go-cid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/account"
	init_ "github.com/borroe/borroe-actors/actors/builtin/init"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
	"github.com/borroe/borroe-actors/actors/serde"
	"github.com/borroe/borroe-actors/support/ipld"
)

// VM holds the state and executes messages over the state.
type VM struct {
	ctx    context.Context
	blocks *ipld.BlockStoreInMemory
	store  *ipld.Store

	networkName  string
	currentEpoch abi.ChainEpoch

	actorImpls ActorImplLookup
	actors     map[string]*TestActor // Keyed by ID address string.

	emptyObject cid.Cid

	invocations []*Invocation
	events      []Event
	logs        []string
	logger      zerolog.Logger
}

// VM types

type TestActor struct {
	Head       cid.Cid
	Code       cid.Cid
	CallSeqNum uint64
}

type ActorImplLookup map[cid.Cid]runtime.VMActor

// A notification emitted by an actor during a message that did not abort.
type Event struct {
	Emitter addr.Address
	Epoch   abi.ChainEpoch
	Type    string
	Payload serde.RawBytes
}

type internalMessage struct {
	from   addr.Address
	to     addr.Address
	method abi.MethodNum
	params interface{}
}

type Option func(*VM)

func WithNetworkName(name string) Option {
	return func(vm *VM) { vm.networkName = name }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VM) { vm.logger = logger }
}

// Counts store reads and writes, registering the counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(vm *VM) {
		vm.store = ipld.WrapBlockStore(vm.ctx, ipld.NewMetricsBlockStore(vm.blocks, reg))
	}
}

// NewVM creates a new runtime for executing messages.
func NewVM(ctx context.Context, actorImpls ActorImplLookup, opts ...Option) *VM {
	blocks := ipld.NewBlockStoreInMemory()
	vm := &VM{
		ctx:         ctx,
		blocks:      blocks,
		store:       ipld.WrapBlockStore(ctx, blocks),
		networkName: "local",
		actorImpls:  actorImpls,
		actors:      make(map[string]*TestActor),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(vm)
	}

	emptyObject, err := vm.store.Put(ctx, &struct{}{})
	if err != nil {
		panic(xerrors.Errorf("could not store empty object: %w", err))
	}
	vm.emptyObject = emptyObject
	return vm
}

type snapshot struct {
	actors map[string]TestActor
	events int
}

func (vm *VM) checkpoint() snapshot {
	actors := make(map[string]TestActor, len(vm.actors))
	for k, a := range vm.actors {
		actors[k] = *a
	}
	return snapshot{actors: actors, events: len(vm.events)}
}

func (vm *VM) rollback(s snapshot) {
	vm.actors = make(map[string]*TestActor, len(s.actors))
	for k, a := range s.actors {
		a := a
		vm.actors[k] = &a
	}
	vm.events = vm.events[:s.events]
}

func (vm *VM) GetActor(a addr.Address) (*TestActor, bool) {
	act, found := vm.actors[a.String()]
	if !found {
		return nil, false
	}
	cpy := *act
	return &cpy, true
}

// SetActor sets the the actor to the given value whether it previously existed or not.
//
// This method will not check if the actor previously existed, it will blindly overwrite it.
func (vm *VM) setActor(key addr.Address, a *TestActor) {
	cpy := *a
	vm.actors[key.String()] = &cpy
}

func (vm *VM) setActorHead(key addr.Address, head cid.Cid) {
	act, found := vm.actors[key.String()]
	if !found {
		panic(xerrors.Errorf("actor %v not found", key))
	}
	act.Head = head
}

// Stores state for an existing actor or creates an actor with the given code.
func (vm *VM) setActorState(key addr.Address, code cid.Cid, state interface{}) error {
	head, err := vm.store.Put(vm.ctx, state)
	if err != nil {
		return err
	}
	act, found := vm.actors[key.String()]
	if !found {
		vm.setActor(key, &TestActor{Head: head, Code: code})
		return nil
	}
	if !act.Code.Equals(code) {
		return xerrors.Errorf("actor %v has code %v, not %v", key, act.Code, code)
	}
	act.Head = head
	return nil
}

// Resolves an address to the ID address of an existing actor through the init actor's table.
func (vm *VM) NormalizeAddress(a addr.Address) (addr.Address, bool) {
	// short-circuit if the address is already an ID address
	if a.Protocol() == addr.ID {
		return a, true
	}

	var state init_.State
	if err := vm.GetState(builtin.InitActorAddr, &state); err != nil {
		panic(xerrors.Errorf("failed to load init actor: %w", err))
	}

	idAddr, found, err := state.ResolveAddress(a)
	if err != nil {
		panic(err)
	}
	return idAddr, found
}

// Outcome of a top-level message.
type MessageResult struct {
	Ret    serde.RawBytes
	Code   exitcode.ExitCode
	Reason string // Why the message failed, empty on success.
}

// Describes a failed message as an error tagged with its exit code, or returns nil on success.
func (r MessageResult) Err() error {
	if r.Code.IsSuccess() {
		return nil
	}
	return r.Code.Wrapf("%s: %s", r.Code.String(), r.Reason)
}

// ApplyMessage applies the message to the current state.
func (vm *VM) ApplyMessage(from, to addr.Address, method abi.MethodNum, params interface{}) MessageResult {
	// This method does not actually execute the message itself,
	// but rather deals with the pre/post processing of a message.
	// (see: `invocationContext.invoke()` for the dispatch and execution)

	// load actor from global state
	var ok bool
	if from, ok = vm.NormalizeAddress(from); !ok {
		return senderInvalid("sender %v not found", from)
	}

	fromActor, found := vm.GetActor(from)
	if !found {
		// Execution error; sender does not exist at time of message execution.
		return senderInvalid("sender %v not found", from)
	}

	if !fromActor.Code.Equals(builtin.AccountActorCodeID) {
		// Execution error; sender is not an account.
		return senderInvalid("sender %v is not an account", from)
	}

	// Load sender account state to obtain stable pubkey address.
	var senderState account.State
	if err := vm.store.Get(vm.ctx, fromActor.Head, &senderState); err != nil {
		panic(err)
	}

	// The sequence number advances even if the message fails.
	fromActor.CallSeqNum++
	vm.setActor(from, fromActor)

	// checkpoint state
	prior := vm.checkpoint()

	topLevel := topLevelContext{
		originatorStableAddress: senderState.Address,
		originatorCallSeq:       fromActor.CallSeqNum - 1,
		newActorAddressCount:    0,
	}

	imsg := internalMessage{
		from:   from,
		to:     to,
		method: method,
		params: params,
	}

	ctx := newInvocationContext(vm, &topLevel, imsg)
	ret, exitCode := ctx.invoke()
	vm.invocations = append(vm.invocations, ctx.invocation)

	// Roll back all state if the receipt's exit code is not ok.
	// Invocation context still needs its own rollback so actors can recover and
	// proceed from a nested call failure.
	if exitCode != exitcode.Ok {
		vm.rollback(prior)
		vm.logger.Debug().
			Str("from", from.String()).
			Str("to", to.String()).
			Uint64("method", uint64(method)).
			Stringer("exitcode", exitCode).
			Str("reason", ctx.invocation.Reason).
			Msg("message failed")
	}

	return MessageResult{Ret: ret, Code: exitCode, Reason: ctx.invocation.Reason}
}

func senderInvalid(format string, args ...interface{}) MessageResult {
	return MessageResult{Code: exitcode.SysErrSenderInvalid, Reason: fmt.Sprintf(format, args...)}
}


func (vm *VM) GetState(a addr.Address, out interface{}) error {
	act, found := vm.GetActor(a)
	if !found {
		return xerrors.Errorf("actor %v not found", a)
	}
	return vm.store.Get(vm.ctx, act.Head, out)
}

func (vm *VM) Store() *ipld.Store {
	return vm.store
}

func (vm *VM) NetworkName() string {
	return vm.networkName
}

func (vm *VM) GetEpoch() abi.ChainEpoch {
	return vm.currentEpoch
}

func (vm *VM) SetEpoch(epoch abi.ChainEpoch) {
	vm.currentEpoch = epoch
}

// Moves the clock forward. Messages applied afterwards observe the new epoch.
func (vm *VM) AdvanceEpoch(delta abi.ChainEpoch) abi.ChainEpoch {
	vm.currentEpoch += delta
	return vm.currentEpoch
}

// Top level invocations applied to this VM so far.
func (vm *VM) Invocations() []*Invocation {
	return vm.invocations
}

func (vm *VM) LastInvocation() *Invocation {
	if len(vm.invocations) == 0 {
		return nil
	}
	return vm.invocations[len(vm.invocations)-1]
}

// Events emitted by messages that completed successfully.
func (vm *VM) Events() []Event {
	return vm.events
}

func (vm *VM) Logs() []string {
	return vm.logs
}

func (vm *VM) getActorImpl(code cid.Cid) (runtime.VMActor, bool) {
	actorImpl, ok := vm.actorImpls[code]
	return actorImpl, ok
}

func (vm *VM) logActor(actor addr.Address, level rtt.LogLevel, msg string) {
	vm.logs = append(vm.logs, msg)

	var ev *zerolog.Event
	switch level {
	case rtt.DEBUG:
		ev = vm.logger.Debug()
	case rtt.WARN:
		ev = vm.logger.Warn()
	case rtt.ERROR:
		ev = vm.logger.Error()
	default:
		ev = vm.logger.Info()
	}
	ev.Str("actor", actor.String()).Int64("epoch", int64(vm.currentEpoch)).Msg(msg)
}

type abort struct {
	code exitcode.ExitCode
	msg  string
}

func (a abort) String() string {
	return fmt.Sprintf("abort(%v): %s", a.code, a.msg)
}

//
// implement runtime.Message for internalMessage
//

var _ runtime.Message = (*internalMessage)(nil)

// Caller implements runtime.Message.
func (msg internalMessage) Caller() addr.Address {
	return msg.from
}

// Receiver implements runtime.Message.
func (msg internalMessage) Receiver() addr.Address {
	return msg.to
}
