package token

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
)

type State struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply abi.TokenAmount

	// Balances keyed by the holder's canonical address string.
	Balances map[string]abi.TokenAmount
}

// A premint of part of the supply to a recipient.
type Allocation struct {
	Recipient addr.Address
	Amount    abi.TokenAmount
}

// Constructs the token state, minting the full supply across the allocations.
// The allocations must sum to the supply.
func ConstructState(supply abi.TokenAmount, allocations []Allocation) (*State, error) {
	st := &State{
		Name:        TokenName,
		Symbol:      TokenSymbol,
		Decimals:    TokenDecimals,
		TotalSupply: supply,
		Balances:    make(map[string]abi.TokenAmount),
	}

	minted := big.Zero()
	for _, a := range allocations {
		if a.Recipient == addr.Undef {
			return nil, exitcode.ErrIllegalArgument.Wrapf("allocation recipient must be defined")
		}
		if a.Amount.LessThan(big.Zero()) {
			return nil, exitcode.ErrIllegalArgument.Wrapf("negative allocation %v to %v", a.Amount, a.Recipient)
		}
		st.credit(a.Recipient, a.Amount)
		minted = big.Add(minted, a.Amount)
	}
	if !minted.Equals(supply) {
		return nil, exitcode.ErrIllegalArgument.Wrapf("allocations sum %v does not match supply %v", minted, supply)
	}
	return st, nil
}

func (st *State) BalanceOf(holder addr.Address) abi.TokenAmount {
	bal, ok := st.Balances[holder.String()]
	if !ok {
		return big.Zero()
	}
	return bal
}

// Moves amount from one holder to another.
func (st *State) Transfer(from, to addr.Address, amount abi.TokenAmount) error {
	if amount.LessThan(big.Zero()) {
		return exitcode.ErrIllegalArgument.Wrapf("negative transfer amount %v", amount)
	}
	if to == addr.Undef {
		return exitcode.ErrIllegalArgument.Wrapf("transfer recipient must be defined")
	}
	available := st.BalanceOf(from)
	if available.LessThan(amount) {
		return exitcode.ErrInsufficientFunds.Wrapf("balance %v of %v less than transfer amount %v", available, from, amount)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	st.debit(from, amount)
	st.credit(to, amount)
	return nil
}

func (st *State) credit(holder addr.Address, amount abi.TokenAmount) {
	st.Balances[holder.String()] = big.Add(st.BalanceOf(holder), amount)
}

func (st *State) debit(holder addr.Address, amount abi.TokenAmount) {
	remaining := big.Sub(st.BalanceOf(holder), amount)
	if remaining.IsZero() {
		delete(st.Balances, holder.String())
		return
	}
	st.Balances[holder.String()] = remaining
}
