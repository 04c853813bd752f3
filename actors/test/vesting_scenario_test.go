package test

import (
	"context"
	"strings"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/token"
	"github.com/borroe/borroe-actors/actors/builtin/vesting"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
	"github.com/borroe/borroe-actors/support/vm"
)

const month = abi.ChainEpoch(builtin.EpochsInMonth)

func TestVestingLifecycle(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t)
	p := createParticipants(ctx, t, v, 3)

	chain, err := vm.NewChain(v, p.owner)
	require.NoError(t, err)
	vestingAddr := deployVesting(ctx, t, chain, p)
	tokenAddr := deployToken(ctx, t, chain, vestingAddr)

	premint := token.BasisPoints(token.InitialSupply, token.VestingBP)
	assert.Equal(t, premint, balanceOf(t, v, p.owner, tokenAddr, vestingAddr))

	// Nothing can start before the token is configured.
	vm.ApplyCode(t, v, p.owner, vestingAddr, builtin.MethodsVesting.StartInitialVestings, runtime.Empty, vesting.ErrInvalidConfiguration)
	vm.ApplyCode(t, v, p.holders[0], vestingAddr, builtin.MethodsVesting.ClaimTokens, runtime.Empty, exitcode.ErrNotFound)
	assert.Contains(t, v.LastInvocation().Reason, "vestings not started")

	err = chain.Call(ctx, vestingAddr, builtin.MethodsVesting.ClaimTokens, runtime.Empty, nil)
	require.Error(t, err)
	assert.Equal(t, exitcode.ErrNotFound, exitcode.Unwrap(err, exitcode.Ok))
	assert.Contains(t, err.Error(), "vestings not started")

	vm.ApplyCode(t, v, p.outsider, vestingAddr, builtin.MethodsVesting.SetToken, &tokenAddr, exitcode.ErrForbidden)
	setToken(t, v, p.owner, vestingAddr, tokenAddr)
	vm.ApplyCode(t, v, p.owner, vestingAddr, builtin.MethodsVesting.SetToken, &tokenAddr, vesting.ErrNoOp)

	vm.ApplyCode(t, v, p.outsider, vestingAddr, builtin.MethodsVesting.StartInitialVestings, runtime.Empty, exitcode.ErrForbidden)

	start := v.AdvanceEpoch(100)
	startVestings(t, v, p.owner, vestingAddr)

	vm.ExpectInvocation{
		To:     vestingAddr,
		Method: builtin.MethodsVesting.StartInitialVestings,
		From:   vm.ExpectAddress(idOf(t, v, p.owner)),
		SubInvocations: []vm.ExpectInvocation{
			{To: tokenAddr, Method: builtin.MethodsToken.BalanceOf, Params: vm.ExpectObject(&vestingAddr)},
		},
	}.Matches(t, v.LastInvocation())

	started := vm.EventsOfType(v, vesting.EventSchedulesInitialized)
	require.Len(t, started, 1)
	var startedEvent vesting.SchedulesInitializedEvent
	require.NoError(t, started[0].Decode(&startedEvent))
	assert.Equal(t, premint, startedEvent.Balance)
	assert.Equal(t, uint64(5), startedEvent.Records)

	vm.ApplyCode(t, v, p.owner, vestingAddr, builtin.MethodsVesting.StartInitialVestings, runtime.Empty, exitcode.ErrIllegalState)

	holderPool, teamPool, partnersPool := vesting.SplitPools(premint)
	share := big.Div(holderPool, big.NewInt(3))

	t.Run("records follow the pools", func(t *testing.T) {
		first := userVesting(t, v, p.outsider, vestingAddr, p.holders[0])
		assert.Equal(t, share, first.TotalAmount)
		assert.Equal(t, start, first.StartEpoch)
		assert.Equal(t, uint64(3), first.ClaimablePeriods)
		assert.Equal(t, month, first.PeriodDuration)
		assert.Equal(t, vesting.StatusActive, first.Status)

		last := userVesting(t, v, p.outsider, vestingAddr, p.holders[2])
		assert.Equal(t, big.Sub(holderPool, big.Mul(share, big.NewInt(2))), last.TotalAmount)

		team := userVesting(t, v, p.outsider, vestingAddr, p.team)
		assert.Equal(t, teamPool, team.TotalAmount)
		assert.Equal(t, uint64(1), team.ClaimablePeriods)
		assert.Equal(t, 24*month, team.PeriodDuration)

		partners := userVesting(t, v, p.outsider, vestingAddr, p.partners)
		assert.Equal(t, partnersPool, partners.TotalAmount)

		vm.ApplyCode(t, v, p.owner, vestingAddr, builtin.MethodsVesting.GetUserVesting, &p.outsider, exitcode.ErrNotFound)
		checkVestingState(t, v, vestingAddr)
	})

	t.Run("nothing is claimable within the first period", func(t *testing.T) {
		ret := claim(t, v, p.holders[0], vestingAddr)
		assert.True(t, ret.Amount.IsZero())
		assert.Empty(t, v.LastInvocation().SubInvocations)

		v.AdvanceEpoch(10 * builtin.EpochsInDay)
		ret = claim(t, v, p.holders[0], vestingAddr)
		assert.True(t, ret.Amount.IsZero())

		vm.ApplyCode(t, v, p.outsider, vestingAddr, builtin.MethodsVesting.ClaimTokens, runtime.Empty, exitcode.ErrNotFound)
	})

	perPeriod := big.Div(share, big.NewInt(3))
	holder := idOf(t, v, p.holders[0])

	t.Run("monthly tranches", func(t *testing.T) {
		v.AdvanceEpoch(month)
		ret := claim(t, v, p.holders[0], vestingAddr)
		assert.Equal(t, perPeriod, ret.Amount)

		vm.ExpectInvocation{
			To:     vestingAddr,
			Method: builtin.MethodsVesting.ClaimTokens,
			From:   vm.ExpectAddress(holder),
			SubInvocations: []vm.ExpectInvocation{{
				To:     tokenAddr,
				Method: builtin.MethodsToken.Transfer,
				From:   vm.ExpectAddress(vestingAddr),
				Params: vm.ExpectObject(&token.TransferParams{To: holder, Amount: perPeriod}),
			}},
		}.Matches(t, v.LastInvocation())
		assert.Equal(t, perPeriod, balanceOf(t, v, p.owner, tokenAddr, p.holders[0]))

		claimed := vm.EventsOfType(v, vesting.EventVestingClaimed)
		require.Len(t, claimed, 1)
		var ev vesting.VestingClaimedEvent
		require.NoError(t, claimed[0].Decode(&ev))
		assert.Equal(t, holder, ev.Beneficiary)
		assert.Equal(t, perPeriod, ev.Amount)

		// A second claim in the same period releases nothing.
		ret = claim(t, v, p.holders[0], vestingAddr)
		assert.True(t, ret.Amount.IsZero())

		v.AdvanceEpoch(5 * month)
		ret = claim(t, v, p.holders[0], vestingAddr)
		assert.Equal(t, big.Sub(share, perPeriod), ret.Amount)
		assert.Equal(t, share, balanceOf(t, v, p.owner, tokenAddr, p.holders[0]))

		rec := userVesting(t, v, p.outsider, vestingAddr, p.holders[0])
		assert.Equal(t, vesting.StatusFullyClaimed, rec.Status)
		assert.Equal(t, uint64(3), rec.LastClaimedPeriod)
		vm.ApplyCode(t, v, p.holders[0], vestingAddr, builtin.MethodsVesting.ClaimTokens, runtime.Empty, exitcode.ErrIllegalState)
		checkVestingState(t, v, vestingAddr)
	})

	t.Run("last holder receives the remainder in one claim", func(t *testing.T) {
		ret := claim(t, v, p.holders[2], vestingAddr)
		assert.Equal(t, big.Sub(holderPool, big.Mul(share, big.NewInt(2))), ret.Amount)
	})

	t.Run("team and partners unlock at the cliff", func(t *testing.T) {
		ret := claim(t, v, p.team, vestingAddr)
		assert.True(t, ret.Amount.IsZero())

		v.SetEpoch(start + 24*month - 1)
		ret = claim(t, v, p.partners, vestingAddr)
		assert.True(t, ret.Amount.IsZero())

		v.SetEpoch(start + 24*month)
		ret = claim(t, v, p.team, vestingAddr)
		assert.Equal(t, teamPool, ret.Amount)
		ret = claim(t, v, p.partners, vestingAddr)
		assert.Equal(t, partnersPool, ret.Amount)
	})

	t.Run("balances reconcile with claims", func(t *testing.T) {
		ret := claim(t, v, p.holders[1], vestingAddr)
		assert.Equal(t, share, ret.Amount)

		st := checkVestingState(t, v, vestingAddr)
		allocated, claimed := st.Totals()
		assert.Equal(t, premint, allocated)
		assert.Equal(t, premint, claimed)
		assert.True(t, balanceOf(t, v, p.owner, tokenAddr, vestingAddr).Equals(big.Zero()))
	})
}

func TestClaimRollsBackWhenTransferFails(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t)
	p := createParticipants(ctx, t, v, 2)

	chain, err := vm.NewChain(v, p.owner)
	require.NoError(t, err)
	vestingAddr := deployVesting(ctx, t, chain, p)
	fundedToken := deployToken(ctx, t, chain, vestingAddr)
	setToken(t, v, p.owner, vestingAddr, fundedToken)
	startVestings(t, v, p.owner, vestingAddr)

	// The replacement token holds nothing for the vesting actor.
	emptyToken := deployToken(ctx, t, chain, p.owner)
	setToken(t, v, p.owner, vestingAddr, emptyToken)

	changed := vm.EventsOfType(v, vesting.EventTokenChanged)
	require.Len(t, changed, 2)
	var ev vesting.TokenChangedEvent
	require.NoError(t, changed[1].Decode(&ev))
	assert.Equal(t, fundedToken, ev.Old)
	assert.Equal(t, emptyToken, ev.New)

	warned := false
	for _, msg := range v.Logs() {
		if strings.Contains(msg, "existing records are not rescaled") {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning for a token change after start")

	v.AdvanceEpoch(month)
	before := userVesting(t, v, p.outsider, vestingAddr, p.holders[0])
	eventCount := len(v.Events())

	vm.ApplyCode(t, v, p.holders[0], vestingAddr, builtin.MethodsVesting.ClaimTokens, runtime.Empty, exitcode.ErrInsufficientFunds)
	failed := v.LastInvocation()
	assert.Contains(t, failed.Reason, "failed to transfer")
	require.Len(t, failed.SubInvocations, 1)
	assert.Contains(t, failed.SubInvocations[0].Reason, "less than transfer amount")

	after := userVesting(t, v, p.outsider, vestingAddr, p.holders[0])
	assert.Equal(t, before.LastClaimedPeriod, after.LastClaimedPeriod)
	assert.True(t, after.ClaimedAmount.IsZero())
	assert.Len(t, v.Events(), eventCount)
	checkVestingState(t, v, vestingAddr)

	// Switching back to the funded token lets the claim through.
	setToken(t, v, p.owner, vestingAddr, fundedToken)
	ret := claim(t, v, p.holders[0], vestingAddr)
	assert.Equal(t, big.Div(after.TotalAmount, big.NewInt(3)), ret.Amount)
}

func TestHolderListedInSeveralGroups(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t)
	p := createParticipants(ctx, t, v, 2)
	p.team = p.holders[0]

	chain, err := vm.NewChain(v, p.owner)
	require.NoError(t, err)
	vestingAddr := deployVesting(ctx, t, chain, p)
	tokenAddr := deployToken(ctx, t, chain, vestingAddr)
	setToken(t, v, p.owner, vestingAddr, tokenAddr)
	startVestings(t, v, p.owner, vestingAddr)

	premint := token.BasisPoints(token.InitialSupply, token.VestingBP)
	holderPool, teamPool, _ := vesting.SplitPools(premint)
	share := big.Div(holderPool, big.NewInt(2))

	merged := big.Add(share, teamPool)
	rec := userVesting(t, v, p.outsider, vestingAddr, p.holders[0])
	assert.Equal(t, merged, rec.TotalAmount)
	assert.Equal(t, uint64(1), rec.ClaimablePeriods)
	assert.Equal(t, 24*month, rec.PeriodDuration)

	// The team cliff holds the whole merged record, holder share included.
	start := rec.StartEpoch
	v.SetEpoch(start + 3*month)
	ret := claim(t, v, p.holders[0], vestingAddr)
	assert.True(t, ret.Amount.IsZero())
	assert.True(t, balanceOf(t, v, p.owner, tokenAddr, p.holders[0]).Equals(big.Zero()))

	// The other holder is unaffected.
	ret = claim(t, v, p.holders[1], vestingAddr)
	assert.Equal(t, big.Sub(holderPool, share), ret.Amount)

	v.SetEpoch(start + 24*month)
	ret = claim(t, v, p.holders[0], vestingAddr)
	assert.Equal(t, merged, ret.Amount)
	checkVestingState(t, v, vestingAddr)
}
