package vesting

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/borroe/borroe-actors/actors/builtin"
)

// Percentages are expressed in basis points: 10_000 is 100%.
const BasisPointScale = 10_000

// Shares of the token supply held by the vesting actor, in basis points of the supply.
const (
	InitialHoldersBP = 5000
	TeamLockBP       = 500
	PartnersLockBP   = 250

	// The vesting actor's whole premint.
	VestingTotalBP = InitialHoldersBP + TeamLockBP + PartnersLockBP
)

// Specification for a discrete vesting schedule.
type VestSpec struct {
	ClaimablePeriods uint64         // Number of equal tranches.
	PeriodDuration   abi.ChainEpoch // Length of each tranche.
}

// Initial holders unlock a third each month for three months.
var InitialHolderVestSpec = VestSpec{
	ClaimablePeriods: 3,
	PeriodDuration:   abi.ChainEpoch(builtin.EpochsInMonth),
}

// Team and partners unlock everything at once after 24 months.
var CliffVestSpec = VestSpec{
	ClaimablePeriods: 1,
	PeriodDuration:   abi.ChainEpoch(24 * builtin.EpochsInMonth),
}

// Full duration of the schedule.
func (s VestSpec) Duration() abi.ChainEpoch {
	return s.PeriodDuration * abi.ChainEpoch(s.ClaimablePeriods)
}

// Partitions the vesting balance into the initial holder, team and partner pools in the
// proportions of their basis point shares. The partner pool takes the rounding remainder so
// that the pools always sum to the balance.
func SplitPools(balance abi.TokenAmount) (holders, team, partners abi.TokenAmount) {
	total := big.NewInt(VestingTotalBP)
	holders = big.Div(big.Mul(balance, big.NewInt(InitialHoldersBP)), total)
	team = big.Div(big.Mul(balance, big.NewInt(TeamLockBP)), total)
	partners = big.Sub(balance, big.Add(holders, team))
	return holders, team, partners
}
