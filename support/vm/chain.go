package vm

import (
	"context"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	cid "github.com/ipfs/go-cid"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
	init_ "github.com/borroe/borroe-actors/actors/builtin/init"
	"github.com/borroe/borroe-actors/actors/serde"
)

// Chain submits messages to a VM on behalf of a single sending account.
type Chain struct {
	vm     *VM
	sender addr.Address
}

// Binds a sender to the VM. The sender must already be an account.
func NewChain(vm *VM, sender addr.Address) (*Chain, error) {
	idAddr, found := vm.NormalizeAddress(sender)
	if !found {
		return nil, xerrors.Errorf("sender %v has no account", sender)
	}
	act, _ := vm.GetActor(idAddr)
	if act == nil || !builtin.IsPrincipal(act.Code) {
		return nil, xerrors.Errorf("sender %v is not an account", sender)
	}
	return &Chain{vm: vm, sender: idAddr}, nil
}

func (c *Chain) VM() *VM {
	return c.vm
}

func (c *Chain) Sender() addr.Address {
	return c.sender
}

func (c *Chain) NetworkName() string {
	return c.vm.NetworkName()
}

// Creates an actor with the given code through the init actor, returning its ID address.
func (c *Chain) Deploy(ctx context.Context, code cid.Cid, params interface{}) (addr.Address, error) {
	if err := ctx.Err(); err != nil {
		return addr.Undef, err
	}
	data, err := serde.Serialize(params)
	if err != nil {
		return addr.Undef, xerrors.Errorf("failed to serialize %s constructor params: %w", builtin.ActorNameByCode(code), err)
	}

	var ret init_.ExecReturn
	if err := c.Call(ctx, builtin.InitActorAddr, builtin.MethodsInit.Exec, &init_.ExecParams{
		CodeCID:           code,
		ConstructorParams: data,
	}, &ret); err != nil {
		return addr.Undef, xerrors.Errorf("failed to deploy %s: %w", builtin.ActorNameByCode(code), err)
	}
	return ret.IDAddress, nil
}

// Applies a message from the sender. A non-zero exit code is returned as an error carrying that code.
func (c *Chain) Call(ctx context.Context, to addr.Address, method abi.MethodNum, params interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := c.vm.ApplyMessage(c.sender, to, method, params)
	if err := res.Err(); err != nil {
		return xerrors.Errorf("call to %v method %d failed: %w", to, method, err)
	}
	if out == nil || len(res.Ret) == 0 {
		return nil
	}
	if err := serde.Deserialize(res.Ret, out); err != nil {
		return xerrors.Errorf("failed to decode return of %v method %d: %w", to, method, err)
	}
	return nil
}

// Reports the code of the actor at an address, for confirming a deployment landed.
func (c *Chain) CodeAt(ctx context.Context, a addr.Address) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	code := c.vm.ActorCode(a)
	if !code.Defined() {
		return cid.Undef, xerrors.Errorf("no actor at %v", a)
	}
	return code, nil
}
