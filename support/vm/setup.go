package vm

import (
	"context"
	"testing"

	addr "github.com/filecoin-project/go-address"
	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/account"
	"github.com/borroe/borroe-actors/actors/builtin/exported"
	init_ "github.com/borroe/borroe-actors/actors/builtin/init"
	"github.com/borroe/borroe-actors/actors/builtin/system"
	actor_testing "github.com/borroe/borroe-actors/support/testing"
)

//
// Genesis like setup
//

// The implementations of every built-in actor, keyed by code.
func BuiltinActorImpls() ActorImplLookup {
	lookup := ActorImplLookup{}
	for _, ba := range exported.BuiltinActors() {
		lookup[ba.Code()] = ba
	}
	return lookup
}

// Creates a new VM holding the system and init singletons.
func NewGenesisVM(ctx context.Context, opts ...Option) (*VM, error) {
	vm := NewVM(ctx, BuiltinActorImpls(), opts...)

	if err := vm.setActorState(builtin.SystemActorAddr, builtin.SystemActorCodeID, &system.State{}); err != nil {
		return nil, xerrors.Errorf("failed to install system actor: %w", err)
	}
	if err := vm.setActorState(builtin.InitActorAddr, builtin.InitActorCodeID, init_.ConstructState(vm.networkName)); err != nil {
		return nil, xerrors.Errorf("failed to install init actor: %w", err)
	}
	return vm, nil
}

// Creates a new VM and initializes all singleton actors.
func NewVMWithSingletons(ctx context.Context, t testing.TB, opts ...Option) *VM {
	vm, err := NewGenesisVM(ctx, opts...)
	require.NoError(t, err)
	return vm
}

// Creates an account actor for a public key address, returning its ID address.
// Accounts come into existence implicitly, outside of any message.
func (vm *VM) CreateAccount(pubkey addr.Address) (addr.Address, error) {
	if pubkey.Protocol() != addr.BLS && pubkey.Protocol() != addr.SECP256K1 {
		return addr.Undef, xerrors.Errorf("account address %v must be a public key address", pubkey)
	}

	var initState init_.State
	if err := vm.GetState(builtin.InitActorAddr, &initState); err != nil {
		return addr.Undef, err
	}
	idAddr, err := initState.MapAddressToNewID(pubkey)
	if err != nil {
		return addr.Undef, err
	}
	if err := vm.setActorState(builtin.InitActorAddr, builtin.InitActorCodeID, &initState); err != nil {
		return addr.Undef, err
	}
	if err := vm.setActorState(idAddr, builtin.AccountActorCodeID, &account.State{Address: pubkey}); err != nil {
		return addr.Undef, err
	}
	return idAddr, nil
}

// Creates n account actors in the VM, returning their public key addresses.
func CreateAccounts(ctx context.Context, t testing.TB, vm *VM, n int) []addr.Address {
	var initState init_.State
	require.NoError(t, vm.GetState(builtin.InitActorAddr, &initState))

	pubAddrs := make([]addr.Address, n)
	for i := range pubAddrs {
		// Seeding from the next ID keeps keys distinct across repeated calls.
		pubAddrs[i] = actor_testing.NewBLSAddr(t, int64(initState.NextID)+int64(i)+93837778)
		_, err := vm.CreateAccount(pubAddrs[i])
		require.NoError(t, err)
	}
	return pubAddrs
}

// Returns the code of the actor at an address, or cid.Undef if there is none.
func (vm *VM) ActorCode(a addr.Address) cid.Cid {
	idAddr, found := vm.NormalizeAddress(a)
	if !found {
		return cid.Undef
	}
	act, found := vm.GetActor(idAddr)
	if !found {
		return cid.Undef
	}
	return act.Code
}
