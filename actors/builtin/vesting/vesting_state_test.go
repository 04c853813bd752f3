package vesting_test

import (
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/token"
	"github.com/borroe/borroe-actors/actors/builtin/vesting"
	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
	tutil "github.com/borroe/borroe-actors/support/testing"
)

const month = abi.ChainEpoch(builtin.EpochsInMonth)

// The vesting actor's share of the token premint.
var premint = token.BasisPoints(token.InitialSupply, token.VestingBP)

func TestSplitPools(t *testing.T) {
	t.Run("premint splits into whole pools", func(t *testing.T) {
		holders, team, partners := vesting.SplitPools(premint)
		assert.Equal(t, big.Mul(big.NewInt(500_000_000), token.OneToken), holders)
		assert.Equal(t, big.Mul(big.NewInt(50_000_000), token.OneToken), team)
		assert.Equal(t, big.Mul(big.NewInt(25_000_000), token.OneToken), partners)
	})

	t.Run("partners absorb the remainder", func(t *testing.T) {
		balance := big.NewInt(5751)
		holders, team, partners := vesting.SplitPools(balance)
		assert.Equal(t, big.NewInt(5000), holders)
		assert.Equal(t, big.NewInt(500), team)
		assert.Equal(t, big.NewInt(251), partners)
		assert.Equal(t, balance, big.Sum(holders, team, partners))
	})
}

func TestSetToken(t *testing.T) {
	tokenA := tutil.NewIDAddr(t, 200)
	tokenB := tutil.NewIDAddr(t, 201)

	t.Run("set and replace", func(t *testing.T) {
		h := newStateHarness(t, 2)
		_, ok := h.s.TokenAddress()
		assert.False(t, ok)

		old, err := h.s.SetToken(tokenA)
		require.NoError(t, err)
		assert.Equal(t, addr.Undef, old)

		old, err = h.s.SetToken(tokenB)
		require.NoError(t, err)
		assert.Equal(t, tokenA, old)

		current, ok := h.s.TokenAddress()
		require.True(t, ok)
		assert.Equal(t, tokenB, current)
	})

	t.Run("rejects undefined token", func(t *testing.T) {
		h := newStateHarness(t, 2)
		_, err := h.s.SetToken(addr.Undef)
		h.requireCode(vesting.ErrInvalidConfiguration, err)
	})

	t.Run("rejects the same token", func(t *testing.T) {
		h := newStateHarness(t, 2)
		_, err := h.s.SetToken(tokenA)
		require.NoError(t, err)
		_, err = h.s.SetToken(tokenA)
		h.requireCode(vesting.ErrNoOp, err)
	})
}

func TestInitializeSchedules(t *testing.T) {
	startEpoch := abi.ChainEpoch(100)

	t.Run("creates a record per beneficiary", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		created := h.initialize(premint, startEpoch)
		require.Len(t, created, 4)

		share := big.Mul(big.NewInt(250_000_000), token.OneToken)
		for _, holder := range h.holders {
			rec := h.record(holder)
			assert.Equal(t, share, rec.TotalAmount)
			assert.Equal(t, vesting.InitialHolderVestSpec.ClaimablePeriods, rec.ClaimablePeriods)
			assert.Equal(t, vesting.InitialHolderVestSpec.PeriodDuration, rec.PeriodDuration)
			assert.Equal(t, startEpoch, rec.StartEpoch)
			assert.Equal(t, vesting.StatusActive, rec.Status)
			assert.True(t, rec.ClaimedAmount.IsZero())
		}
		team := h.record(h.team)
		assert.Equal(t, big.Mul(big.NewInt(50_000_000), token.OneToken), team.TotalAmount)
		assert.Equal(t, uint64(1), team.ClaimablePeriods)
		assert.Equal(t, 24*month, team.PeriodDuration)

		partners := h.record(h.partners)
		assert.Equal(t, big.Mul(big.NewInt(25_000_000), token.OneToken), partners.TotalAmount)

		assert.Equal(t, vesting.PhaseInitialized, h.s.Phase)
		assert.Equal(t, premint, h.s.InitialBalance)
		h.checkInvariants()
	})

	t.Run("last holder takes the rounding remainder", func(t *testing.T) {
		h := newStateHarness(t, 3)
		h.setToken()
		balance := big.NewInt(5750 + 2) // holder pool of 5001
		h.initialize(balance, startEpoch)

		assert.Equal(t, big.NewInt(1667), h.record(h.holders[0]).TotalAmount)
		assert.Equal(t, big.NewInt(1667), h.record(h.holders[1]).TotalAmount)
		assert.Equal(t, big.NewInt(1667), h.record(h.holders[2]).TotalAmount)

		balance = big.NewInt(5750 + 1) // holder pool of 5000
		h = newStateHarness(t, 3)
		h.setToken()
		h.initialize(balance, startEpoch)
		assert.Equal(t, big.NewInt(1666), h.record(h.holders[0]).TotalAmount)
		assert.Equal(t, big.NewInt(1666), h.record(h.holders[1]).TotalAmount)
		assert.Equal(t, big.NewInt(1668), h.record(h.holders[2]).TotalAmount)
		h.checkInvariants()
	})

	t.Run("beneficiary in two groups gets one merged record", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.s.Team = h.holders[0]
		h.setToken()
		created := h.initialize(premint, startEpoch)
		require.Len(t, created, 3)

		rec := h.record(h.holders[0])
		expected := big.Mul(big.NewInt(300_000_000), token.OneToken)
		assert.Equal(t, expected, rec.TotalAmount)
		// The team cliff outlasts the holder schedule and governs the whole record.
		assert.Equal(t, vesting.CliffVestSpec.ClaimablePeriods, rec.ClaimablePeriods)
		assert.Equal(t, vesting.CliffVestSpec.PeriodDuration, rec.PeriodDuration)

		assert.True(t, h.claim(h.holders[0], startEpoch+3*month).Equals(big.Zero()))
		assert.True(t, h.claim(h.holders[0], startEpoch+24*month-1).Equals(big.Zero()))
		assert.Equal(t, expected, h.claim(h.holders[0], startEpoch+24*month))
		h.checkInvariants()
	})

	t.Run("cliff listed first keeps its schedule", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.s.Partners = h.s.Team
		h.setToken()
		h.initialize(premint, startEpoch)

		rec := h.record(h.team)
		assert.Equal(t, big.Mul(big.NewInt(75_000_000), token.OneToken), rec.TotalAmount)
		assert.Equal(t, vesting.CliffVestSpec.PeriodDuration, rec.PeriodDuration)
		h.checkInvariants()
	})

	t.Run("fails without token", func(t *testing.T) {
		h := newStateHarness(t, 2)
		_, err := h.s.InitializeSchedules(premint, startEpoch)
		h.requireCode(vesting.ErrInvalidConfiguration, err)
		assert.Equal(t, vesting.PhaseUninitialized, h.s.Phase)
	})

	t.Run("fails with zero balance", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		_, err := h.s.InitializeSchedules(big.Zero(), startEpoch)
		h.requireCode(exitcode.ErrInsufficientFunds, err)
	})

	t.Run("fails when a pool rounds to nothing", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		_, err := h.s.InitializeSchedules(big.NewInt(10), startEpoch)
		h.requireCode(exitcode.ErrInsufficientFunds, err)
	})

	t.Run("fails when already initialized", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		h.initialize(premint, startEpoch)
		_, err := h.s.InitializeSchedules(premint, startEpoch+1)
		h.requireCode(exitcode.ErrIllegalState, err)
		assert.Equal(t, startEpoch, h.record(h.holders[0]).StartEpoch)
	})
}

func TestClaim(t *testing.T) {
	startEpoch := abi.ChainEpoch(1000)
	share := big.Mul(big.NewInt(250_000_000), token.OneToken)
	perPeriod := big.Div(share, big.NewInt(3))

	t.Run("initial holder claims monthly tranches", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		h.initialize(premint, startEpoch)
		holder := h.holders[0]

		// Nothing before the first period completes.
		assert.True(t, h.claim(holder, startEpoch).Equals(big.Zero()))
		assert.True(t, h.claim(holder, startEpoch+month-1).Equals(big.Zero()))

		assert.Equal(t, perPeriod, h.claim(holder, startEpoch+month))
		// A second claim in the same period releases nothing.
		assert.True(t, h.claim(holder, startEpoch+month+10).Equals(big.Zero()))

		assert.Equal(t, perPeriod, h.claim(holder, startEpoch+2*month))

		// The final tranche carries the rounding remainder.
		final := h.claim(holder, startEpoch+3*month)
		assert.Equal(t, big.Sub(share, big.Mul(perPeriod, big.NewInt(2))), final)

		rec := h.record(holder)
		assert.Equal(t, share, rec.ClaimedAmount)
		assert.Equal(t, vesting.StatusFullyClaimed, rec.Status)
		assert.Equal(t, uint64(3), rec.LastClaimedPeriod)
		h.checkInvariants()

		_, err := h.s.Claim(holder, startEpoch+4*month)
		h.requireCode(exitcode.ErrIllegalState, err)
	})

	t.Run("skipped periods are claimed together", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		h.initialize(premint, startEpoch)
		holder := h.holders[1]

		assert.Equal(t, big.Mul(perPeriod, big.NewInt(2)), h.claim(holder, startEpoch+2*month+5))
		assert.Equal(t, uint64(2), h.record(holder).LastClaimedPeriod)
		h.checkInvariants()
	})

	t.Run("claim long after the end releases everything", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		h.initialize(premint, startEpoch)
		holder := h.holders[0]

		assert.Equal(t, share, h.claim(holder, startEpoch+100*month))
		assert.Equal(t, vesting.StatusFullyClaimed, h.record(holder).Status)
	})

	t.Run("team and partners unlock at the cliff", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		h.initialize(premint, startEpoch)

		assert.True(t, h.claim(h.team, startEpoch+12*month).Equals(big.Zero()))
		assert.True(t, h.claim(h.team, startEpoch+24*month-1).Equals(big.Zero()))
		assert.Equal(t, big.Mul(big.NewInt(50_000_000), token.OneToken), h.claim(h.team, startEpoch+24*month))
		assert.Equal(t, big.Mul(big.NewInt(25_000_000), token.OneToken), h.claim(h.partners, startEpoch+30*month))
		h.checkInvariants()
	})

	t.Run("fails before vestings start", func(t *testing.T) {
		h := newStateHarness(t, 2)
		_, err := h.s.Claim(h.holders[0], startEpoch)
		h.requireCode(exitcode.ErrNotFound, err)
	})

	t.Run("fails for unknown beneficiary", func(t *testing.T) {
		h := newStateHarness(t, 2)
		h.setToken()
		h.initialize(premint, startEpoch)
		_, err := h.s.Claim(tutil.NewIDAddr(t, 999), startEpoch+month)
		h.requireCode(exitcode.ErrNotFound, err)
	})
}

func TestGetRecord(t *testing.T) {
	h := newStateHarness(t, 1)

	_, err := h.s.GetRecord(h.holders[0])
	h.requireCode(exitcode.ErrNotFound, err)

	h.setToken()
	h.initialize(premint, 0)

	_, err = h.s.GetRecord(addr.Undef)
	h.requireCode(exitcode.ErrIllegalArgument, err)

	_, err = h.s.GetRecord(tutil.NewIDAddr(t, 999))
	h.requireCode(exitcode.ErrNotFound, err)

	rec, err := h.s.GetRecord(h.holders[0])
	require.NoError(t, err)
	assert.Equal(t, h.holders[0], rec.Beneficiary)
}

func TestReleasableDoesNotMutate(t *testing.T) {
	rec := &vesting.VestingRecord{
		Status:           vesting.StatusActive,
		TotalAmount:      big.NewInt(300),
		ClaimedAmount:    big.Zero(),
		StartEpoch:       10,
		ClaimablePeriods: 3,
		PeriodDuration:   5,
	}

	amount, periods := rec.Releasable(9)
	assert.True(t, amount.IsZero())
	assert.Equal(t, uint64(0), periods)

	amount, periods = rec.Releasable(21)
	assert.Equal(t, big.NewInt(200), amount)
	assert.Equal(t, uint64(2), periods)
	assert.True(t, rec.ClaimedAmount.IsZero())
	assert.Equal(t, uint64(0), rec.LastClaimedPeriod)
}

type stateHarness struct {
	t testing.TB

	s        *vesting.State
	holders  []addr.Address
	team     addr.Address
	partners addr.Address
}

func newStateHarness(t testing.TB, holderCount int) *stateHarness {
	owner := tutil.NewIDAddr(t, 100)
	var holders []addr.Address
	for i := 0; i < holderCount; i++ {
		holders = append(holders, tutil.NewIDAddr(t, uint64(300+i)))
	}
	team := tutil.NewIDAddr(t, 400)
	partners := tutil.NewIDAddr(t, 401)

	return &stateHarness{
		t:        t,
		s:        vesting.ConstructState(owner, holders, team, partners),
		holders:  holders,
		team:     team,
		partners: partners,
	}
}

func (h *stateHarness) setToken() {
	_, err := h.s.SetToken(tutil.NewIDAddr(h.t, 200))
	require.NoError(h.t, err)
}

func (h *stateHarness) initialize(balance abi.TokenAmount, epoch abi.ChainEpoch) []*vesting.VestingRecord {
	created, err := h.s.InitializeSchedules(balance, epoch)
	require.NoError(h.t, err)
	return created
}

func (h *stateHarness) claim(beneficiary addr.Address, epoch abi.ChainEpoch) abi.TokenAmount {
	amount, err := h.s.Claim(beneficiary, epoch)
	require.NoError(h.t, err)
	return amount
}

func (h *stateHarness) record(beneficiary addr.Address) *vesting.VestingRecord {
	rec, err := h.s.GetRecord(beneficiary)
	require.NoError(h.t, err)
	return rec
}

func (h *stateHarness) requireCode(expected exitcode.ExitCode, err error) {
	require.Error(h.t, err)
	assert.Equal(h.t, expected, exitcode.Unwrap(err, exitcode.Ok), "error: %v", err)
}

func (h *stateHarness) checkInvariants() {
	_, msgs := vesting.CheckStateInvariants(h.s)
	assert.True(h.t, msgs.IsEmpty(), msgs.Messages())
}
