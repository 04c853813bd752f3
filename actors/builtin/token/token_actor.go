package token

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	rtt "github.com/filecoin-project/go-state-types/rt"
	"github.com/ipfs/go-cid"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
)

type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		builtin.MethodConstructor: a.Constructor,
		2:                         a.Transfer,
		3:                         a.BalanceOf,
		4:                         a.TotalSupply,
	}
}

func (a Actor) Code() cid.Cid {
	return builtin.TokenActorCodeID
}

func (a Actor) IsSingleton() bool {
	return false
}

func (a Actor) State() interface{} {
	return new(State)
}

var _ runtime.VMActor = Actor{}

// Recipients of the premint.
type ConstructorParams struct {
	Vesting         addr.Address
	LiquidityPool   addr.Address
	ExchangeListing addr.Address
	Marketing       addr.Address
	Treasury        addr.Address
	Rewards         addr.Address
}

const EventTransfer = "TokenTransfer"

type TransferEvent struct {
	From   addr.Address
	To     addr.Address
	Amount abi.TokenAmount
}

func (a Actor) Constructor(rt runtime.Runtime, params *ConstructorParams) *runtime.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.InitActorAddr)

	recipients := []struct {
		name string
		addr addr.Address
		bp   int64
	}{
		{"vesting", params.Vesting, VestingBP},
		{"liquidity pool", params.LiquidityPool, LiquidityPoolBP},
		{"exchange listing", params.ExchangeListing, ExchangeListingBP},
		{"marketing", params.Marketing, MarketingBP},
		{"treasury", params.Treasury, TreasuryBP},
		{"rewards", params.Rewards, RewardsBP},
	}

	allocations := make([]Allocation, 0, len(recipients))
	minted := big.Zero()
	for i, r := range recipients {
		builtin.RequireParam(rt, r.addr != addr.Undef, "invalid %s address", r.name)
		amount := BasisPoints(InitialSupply, r.bp)
		if i == len(recipients)-1 {
			// The last recipient absorbs any rounding remainder.
			amount = big.Sub(InitialSupply, minted)
		}
		minted = big.Add(minted, amount)
		allocations = append(allocations, Allocation{Recipient: canonical(rt, r.addr), Amount: amount})
	}

	st, err := ConstructState(InitialSupply, allocations)
	builtin.RequireNoErr(rt, err, exitcode.ErrIllegalArgument, "failed to construct token state")
	rt.State().Create(st)

	rt.Log(builtin.GetActorLogLevel(a, rtt.INFO), "minted %v %s", InitialSupply, TokenSymbol)
	return nil
}

type TransferParams struct {
	To     addr.Address
	Amount abi.TokenAmount
}

// Transfers tokens from the caller to a recipient.
func (a Actor) Transfer(rt runtime.Runtime, params *TransferParams) *runtime.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	builtin.RequireParam(rt, params.To != addr.Undef, "invalid recipient address")

	from := rt.Message().Caller()
	to := canonical(rt, params.To)

	var st State
	rt.State().Transaction(&st, func() {
		err := st.Transfer(from, to, params.Amount)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to transfer %v from %v to %v", params.Amount, from, to)
	})

	rt.EmitEvent(EventTransfer, &TransferEvent{From: from, To: to, Amount: params.Amount})
	return nil
}

func (a Actor) BalanceOf(rt runtime.Runtime, holder *addr.Address) *abi.TokenAmount {
	rt.ValidateImmediateCallerAcceptAny()

	var st State
	rt.State().Readonly(&st)
	balance := st.BalanceOf(canonical(rt, *holder))
	return &balance
}

func (a Actor) TotalSupply(rt runtime.Runtime, _ *runtime.EmptyValue) *abi.TokenAmount {
	rt.ValidateImmediateCallerAcceptAny()

	var st State
	rt.State().Readonly(&st)
	return &st.TotalSupply
}

// Balances are keyed by ID address where one exists, so that holders resolve consistently
// whichever of their addresses is used.
func canonical(rt runtime.Runtime, a addr.Address) addr.Address {
	if resolved, ok := rt.ResolveAddress(a); ok {
		return resolved
	}
	return a
}
