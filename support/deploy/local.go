package deploy

import (
	"context"
	"errors"
	"os"

	addr "github.com/filecoin-project/go-address"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/support/vm"
)

// LocalNetwork is an in-process chain whose state persists in a snapshot file between runs.
type LocalNetwork struct {
	*vm.Chain
	path   string
	logger zerolog.Logger
}

// Opens the local network stored at cfg.StatePath, creating a fresh genesis when there is none.
// Every public key address named by the configuration is given an account.
func OpenLocalNetwork(ctx context.Context, cfg *Config, logger zerolog.Logger) (*LocalNetwork, error) {
	if cfg.Network != NetworkLocal {
		return nil, xerrors.Errorf("network %q is not local", cfg.Network)
	}
	p, err := cfg.Participants()
	if err != nil {
		return nil, err
	}

	opts := []vm.Option{vm.WithNetworkName(NetworkLocal), vm.WithLogger(logger)}
	v, err := vm.LoadVM(ctx, cfg.StatePath, vm.BuiltinActorImpls(), opts...)
	switch {
	case err == nil:
		logger.Info().Str("path", cfg.StatePath).Msg("loaded local network")
	case errors.Is(err, os.ErrNotExist):
		if v, err = vm.NewGenesisVM(ctx, opts...); err != nil {
			return nil, err
		}
		logger.Info().Msg("created local network")
	default:
		return nil, err
	}

	for _, a := range p.All() {
		if err := ensureAccount(v, a); err != nil {
			return nil, err
		}
	}

	chain, err := vm.NewChain(v, p.Owner)
	if err != nil {
		return nil, err
	}
	return &LocalNetwork{Chain: chain, path: cfg.StatePath, logger: logger}, nil
}

func ensureAccount(v *vm.VM, a addr.Address) error {
	if v.ActorCode(a).Defined() {
		return nil
	}
	if a.Protocol() == addr.ID {
		return xerrors.Errorf("no actor at %v", a)
	}
	_, err := v.CreateAccount(a)
	return err
}

// Persists the network's state for the next run.
func (n *LocalNetwork) Save() error {
	return n.VM().Save(n.path)
}
