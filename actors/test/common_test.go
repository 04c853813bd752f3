package test

import (
	"context"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/require"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/token"
	"github.com/borroe/borroe-actors/actors/builtin/vesting"
	"github.com/borroe/borroe-actors/actors/runtime"
	"github.com/borroe/borroe-actors/support/vm"
)

// Accounts taking part in a deployment.
type participants struct {
	owner    addr.Address
	holders  []addr.Address
	team     addr.Address
	partners addr.Address
	outsider addr.Address
}

func createParticipants(ctx context.Context, t *testing.T, v *vm.VM, holders int) participants {
	addrs := vm.CreateAccounts(ctx, t, v, holders+4)
	return participants{
		owner:    addrs[0],
		team:     addrs[1],
		partners: addrs[2],
		outsider: addrs[3],
		holders:  addrs[4:],
	}
}

func deployVesting(ctx context.Context, t *testing.T, chain *vm.Chain, p participants) addr.Address {
	vestingAddr, err := chain.Deploy(ctx, builtin.VestingActorCodeID, &vesting.ConstructorParams{
		Owner:          p.owner,
		InitialHolders: p.holders,
		Team:           p.team,
		Partners:       p.partners,
	})
	require.NoError(t, err)
	return vestingAddr
}

// Deploys a token paying the vesting share to vestingRecipient and everything else to the owner.
func deployToken(ctx context.Context, t *testing.T, chain *vm.Chain, vestingRecipient addr.Address) addr.Address {
	owner := chain.Sender()
	tokenAddr, err := chain.Deploy(ctx, builtin.TokenActorCodeID, &token.ConstructorParams{
		Vesting:         vestingRecipient,
		LiquidityPool:   owner,
		ExchangeListing: owner,
		Marketing:       owner,
		Treasury:        owner,
		Rewards:         owner,
	})
	require.NoError(t, err)
	return tokenAddr
}

func setToken(t *testing.T, v *vm.VM, owner, vestingAddr, tokenAddr addr.Address) {
	vm.ApplyOk(t, v, owner, vestingAddr, builtin.MethodsVesting.SetToken, &tokenAddr, nil)
}

func startVestings(t *testing.T, v *vm.VM, owner, vestingAddr addr.Address) {
	vm.ApplyOk(t, v, owner, vestingAddr, builtin.MethodsVesting.StartInitialVestings, runtime.Empty, nil)
}

func claim(t *testing.T, v *vm.VM, beneficiary, vestingAddr addr.Address) vesting.ClaimReturn {
	var ret vesting.ClaimReturn
	vm.ApplyOk(t, v, beneficiary, vestingAddr, builtin.MethodsVesting.ClaimTokens, runtime.Empty, &ret)
	return ret
}

func userVesting(t *testing.T, v *vm.VM, caller, vestingAddr, user addr.Address) vesting.VestingRecord {
	var rec vesting.VestingRecord
	vm.ApplyOk(t, v, caller, vestingAddr, builtin.MethodsVesting.GetUserVesting, &user, &rec)
	return rec
}

func balanceOf(t *testing.T, v *vm.VM, caller, tokenAddr, holder addr.Address) abi.TokenAmount {
	var balance abi.TokenAmount
	vm.ApplyOk(t, v, caller, tokenAddr, builtin.MethodsToken.BalanceOf, &holder, &balance)
	return balance
}

func checkVestingState(t *testing.T, v *vm.VM, vestingAddr addr.Address) *vesting.State {
	var st vesting.State
	require.NoError(t, v.GetState(vestingAddr, &st))
	_, msgs := vesting.CheckStateInvariants(&st)
	require.True(t, msgs.IsEmpty(), msgs.Messages())
	return &st
}

func idOf(t *testing.T, v *vm.VM, a addr.Address) addr.Address {
	idAddr, found := v.NormalizeAddress(a)
	require.True(t, found, "no actor for %v", a)
	return idAddr
}
