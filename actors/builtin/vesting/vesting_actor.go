package vesting

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	rtt "github.com/filecoin-project/go-state-types/rt"
	"github.com/ipfs/go-cid"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/token"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
)

// Vesting actor specific exit codes.
const (
	// A required address is missing, or the token is not configured.
	ErrInvalidConfiguration = exitcode.FirstActorSpecificExitCode + iota
	// A configuration change would leave the value unchanged.
	ErrNoOp
)

// Notifications emitted by the vesting actor.
const (
	EventSchedulesInitialized = "SchedulesInitialized"
	EventVestingClaimed       = "VestingClaimed"
	EventTokenChanged         = "TokenChanged"
)

type SchedulesInitializedEvent struct {
	Balance abi.TokenAmount
	Records uint64
}

type VestingClaimedEvent struct {
	Beneficiary addr.Address
	Amount      abi.TokenAmount
}

type TokenChangedEvent struct {
	Old addr.Address
	New addr.Address
}

type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		builtin.MethodConstructor: a.Constructor,
		2:                         a.StartInitialVestings,
		3:                         a.ClaimTokens,
		4:                         a.GetUserVesting,
		5:                         a.SetToken,
	}
}

func (a Actor) Code() cid.Cid {
	return builtin.VestingActorCodeID
}

func (a Actor) IsSingleton() bool {
	return false
}

func (a Actor) State() interface{} {
	return new(State)
}

var _ runtime.VMActor = Actor{}

type ConstructorParams struct {
	// Account allowed to configure the token and start the vestings.
	Owner          addr.Address
	InitialHolders []addr.Address
	Team           addr.Address
	Partners       addr.Address
}

func (a Actor) Constructor(rt runtime.Runtime, params *ConstructorParams) *runtime.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.InitActorAddr)

	builtin.RequireParam(rt, params.Owner != addr.Undef, "invalid owner address")
	builtin.RequireParam(rt, len(params.InitialHolders) > 0, "no initial holders")
	builtin.RequireParam(rt, params.Team != addr.Undef, "invalid team address")
	builtin.RequireParam(rt, params.Partners != addr.Undef, "invalid partners address")

	owner := builtin.ResolveToIDAddr(rt, params.Owner)
	ownerCode, ok := rt.GetActorCodeCID(owner)
	builtin.RequireParam(rt, ok && builtin.IsPrincipal(ownerCode), "owner %v must be an account", params.Owner)

	seen := make(map[addr.Address]struct{}, len(params.InitialHolders))
	holders := make([]addr.Address, 0, len(params.InitialHolders))
	for _, h := range params.InitialHolders {
		builtin.RequireParam(rt, h != addr.Undef, "invalid initial holder address")
		resolved := builtin.ResolveToIDAddr(rt, h)
		if _, dup := seen[resolved]; dup {
			rt.Abortf(exitcode.ErrIllegalArgument, "duplicate initial holder %v", h)
		}
		seen[resolved] = struct{}{}
		holders = append(holders, resolved)
	}

	team := builtin.ResolveToIDAddr(rt, params.Team)
	partners := builtin.ResolveToIDAddr(rt, params.Partners)

	st := ConstructState(owner, holders, team, partners)
	rt.State().Create(st)
	return nil
}

// Creates the vesting records from the vesting actor's token balance. May be called once,
// by the owner, after the token is configured.
func (a Actor) StartInitialVestings(rt runtime.Runtime, _ *runtime.EmptyValue) *runtime.EmptyValue {
	var st State
	rt.State().Readonly(&st)
	rt.ValidateImmediateCallerIs(st.Owner)

	if st.Phase != PhaseUninitialized {
		rt.Abortf(exitcode.ErrIllegalState, "initial vestings already started")
	}
	tokenAddr, ok := st.TokenAddress()
	if !ok {
		rt.Abortf(ErrInvalidConfiguration, "token not configured")
	}

	balance := requestBalance(rt, tokenAddr, rt.Message().Receiver())
	if balance.LessThanEqual(big.Zero()) {
		rt.Abortf(exitcode.ErrInsufficientFunds, "insufficient balance %v", balance)
	}

	var created []*VestingRecord
	rt.State().Transaction(&st, func() {
		var err error
		created, err = st.InitializeSchedules(balance, rt.CurrEpoch())
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to initialize schedules")
	})

	rt.EmitEvent(EventSchedulesInitialized, &SchedulesInitializedEvent{
		Balance: balance,
		Records: uint64(len(created)),
	})
	rt.Log(builtin.GetActorLogLevel(a, rtt.INFO), "vesting started: %d records over balance %v", len(created), balance)
	return nil
}

type ClaimReturn struct {
	Amount abi.TokenAmount
}

// Releases to the caller whatever its record has unlocked since its last claim.
func (a Actor) ClaimTokens(rt runtime.Runtime, _ *runtime.EmptyValue) *ClaimReturn {
	rt.ValidateImmediateCallerType(builtin.CallerTypesSignable...)
	beneficiary := rt.Message().Caller()

	var st State
	var amount abi.TokenAmount
	rt.State().Transaction(&st, func() {
		var err error
		amount, err = st.Claim(beneficiary, rt.CurrEpoch())
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to claim")
	})

	if amount.GreaterThan(big.Zero()) {
		tokenAddr, ok := st.TokenAddress()
		if !ok {
			rt.Abortf(ErrInvalidConfiguration, "token not configured")
		}
		_, code := rt.Send(tokenAddr, builtin.MethodsToken.Transfer, &token.TransferParams{
			To:     beneficiary,
			Amount: amount,
		})
		builtin.RequireSuccess(rt, code, "failed to transfer %v to %v", amount, beneficiary)

		rt.EmitEvent(EventVestingClaimed, &VestingClaimedEvent{Beneficiary: beneficiary, Amount: amount})
	}
	return &ClaimReturn{Amount: amount}
}

// Returns the stored vesting record of a beneficiary.
func (a Actor) GetUserVesting(rt runtime.Runtime, user *addr.Address) *VestingRecord {
	rt.ValidateImmediateCallerAcceptAny()
	builtin.RequireParam(rt, *user != addr.Undef, "invalid user address")

	var st State
	rt.State().Readonly(&st)

	resolved, ok := rt.ResolveAddress(*user)
	if !ok {
		rt.Abortf(exitcode.ErrNotFound, "no vesting record for %v", *user)
	}
	rec, err := st.GetRecord(resolved)
	builtin.RequireNoErr(rt, err, exitcode.ErrNotFound, "failed to get vesting record")
	return rec
}

// Points the vesting actor at a token actor. Records that already exist keep their amounts,
// whichever token they are later paid from.
func (a Actor) SetToken(rt runtime.Runtime, newToken *addr.Address) *runtime.EmptyValue {
	var st State
	rt.State().Readonly(&st)
	rt.ValidateImmediateCallerIs(st.Owner)

	tokenAddr := *newToken
	if tokenAddr != addr.Undef {
		if resolved, ok := rt.ResolveAddress(tokenAddr); ok {
			tokenAddr = resolved
		}
	}

	var old addr.Address
	var started bool
	rt.State().Transaction(&st, func() {
		var err error
		old, err = st.SetToken(tokenAddr)
		builtin.RequireNoErr(rt, err, ErrInvalidConfiguration, "failed to set token")
		started = st.Phase == PhaseInitialized
	})

	if started {
		rt.Log(rtt.WARN, "token changed from %v to %v after vestings started; existing records are not rescaled", old, tokenAddr)
	}
	rt.EmitEvent(EventTokenChanged, &TokenChangedEvent{Old: old, New: tokenAddr})
	return nil
}

func requestBalance(rt runtime.Runtime, tokenAddr, holder addr.Address) abi.TokenAmount {
	ret, code := rt.Send(tokenAddr, builtin.MethodsToken.BalanceOf, &holder)
	builtin.RequireSuccess(rt, code, "failed to query balance of %v", holder)

	var balance abi.TokenAmount
	err := ret.Into(&balance)
	builtin.RequireNoErr(rt, err, exitcode.ErrSerialization, "failed to unmarshal balance")
	return balance
}
