package vesting

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/borroe/borroe-actors/actors/builtin"
)

type StateSummary struct {
	Records   int
	Allocated abi.TokenAmount
	Claimed   abi.TokenAmount
}

// Checks internal invariants of vesting state.
func CheckStateInvariants(st *State) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}

	acc.Require(st.Owner != addr.Undef, "owner is undefined")
	acc.Require(len(st.InitialHolders) > 0, "no initial holders")

	switch st.Phase {
	case PhaseUninitialized:
		acc.Require(len(st.Records) == 0, "%d records exist before initialization", len(st.Records))
		acc.Require(st.InitialBalance.IsZero(), "initial balance %v set before initialization", st.InitialBalance)
	case PhaseInitialized:
		_, ok := st.TokenAddress()
		acc.Require(ok, "initialized without a token")
		acc.Require(len(st.Records) > 0, "initialized without records")
	default:
		acc.Addf("unknown phase %d", st.Phase)
	}

	for key, rec := range st.Records {
		racc := acc.WithPrefix("record %s: ", key)
		racc.Require(rec.Beneficiary.String() == key, "keyed under wrong beneficiary %v", rec.Beneficiary)
		racc.Require(rec.TotalAmount.GreaterThan(big.Zero()), "non-positive total %v", rec.TotalAmount)
		racc.Require(rec.ClaimedAmount.GreaterThanEqual(big.Zero()), "negative claimed %v", rec.ClaimedAmount)
		racc.Require(rec.ClaimedAmount.LessThanEqual(rec.TotalAmount), "claimed %v exceeds total %v", rec.ClaimedAmount, rec.TotalAmount)
		racc.Require(rec.LastClaimedPeriod <= rec.ClaimablePeriods, "last claimed period %d exceeds %d periods", rec.LastClaimedPeriod, rec.ClaimablePeriods)
		racc.Require(rec.PeriodDuration > 0, "non-positive period duration %d", rec.PeriodDuration)

		fully := rec.ClaimedAmount.Equals(rec.TotalAmount)
		racc.Require(fully == (rec.Status == StatusFullyClaimed), "status %v inconsistent with claimed %v of %v", rec.Status, rec.ClaimedAmount, rec.TotalAmount)
		if rec.LastClaimedPeriod < rec.ClaimablePeriods {
			perPeriod := big.Div(rec.TotalAmount, big.NewIntUnsigned(rec.ClaimablePeriods))
			expected := big.Mul(perPeriod, big.NewIntUnsigned(rec.LastClaimedPeriod))
			racc.Require(rec.ClaimedAmount.Equals(expected), "claimed %v does not match %d periods of %v", rec.ClaimedAmount, rec.LastClaimedPeriod, perPeriod)
		}
	}

	allocated, claimed := st.Totals()
	if st.Phase == PhaseInitialized {
		acc.Require(allocated.Equals(st.InitialBalance), "allocated %v does not equal initial balance %v", allocated, st.InitialBalance)
	}

	return &StateSummary{
		Records:   len(st.Records),
		Allocated: allocated,
		Claimed:   claimed,
	}, acc
}
