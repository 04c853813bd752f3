package token

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/borroe/borroe-actors/actors/builtin"
)

type StateSummary struct {
	Holders     int
	TotalSupply abi.TokenAmount
}

// Checks internal invariants of token state.
func CheckStateInvariants(st *State) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}

	acc.Require(st.TotalSupply.GreaterThanEqual(big.Zero()), "total supply %v is negative", st.TotalSupply)

	sum := big.Zero()
	for key, bal := range st.Balances {
		_, err := addr.NewFromString(key)
		acc.RequireNoError(err, "balance key %q is not an address", key)
		acc.Require(bal.GreaterThanEqual(big.Zero()), "balance of %s is negative: %v", key, bal)
		sum = big.Add(sum, bal)
	}
	acc.Require(sum.Equals(st.TotalSupply), "sum of balances %v does not equal total supply %v", sum, st.TotalSupply)

	return &StateSummary{
		Holders:     len(st.Balances),
		TotalSupply: st.TotalSupply,
	}, acc
}
