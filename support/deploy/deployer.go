package deploy

import (
	"context"
	"time"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/google/uuid"
	cid "github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/token"
	"github.com/borroe/borroe-actors/actors/builtin/vesting"
	"github.com/borroe/borroe-actors/actors/runtime"
)

// Chain deploys actors and sends messages as a single account.
type Chain interface {
	NetworkName() string
	Sender() addr.Address
	Deploy(ctx context.Context, code cid.Cid, params interface{}) (addr.Address, error)
	Call(ctx context.Context, to addr.Address, method abi.MethodNum, params interface{}, out interface{}) error
	CodeAt(ctx context.Context, a addr.Address) (cid.Cid, error)
}

// Deployer runs the deployment sequence of the vesting and token actors.
type Deployer struct {
	cfg      *Config
	chain    Chain
	verifier Verifier
	logger   zerolog.Logger
	runID    string
	sleep    func(ctx context.Context, d time.Duration) error
}

type DeployerOption func(*Deployer)

// Submits deployed contracts for explorer verification. Without a verifier, verification is skipped.
func WithVerifier(v Verifier) DeployerOption {
	return func(d *Deployer) { d.verifier = v }
}

func WithLogger(logger zerolog.Logger) DeployerOption {
	return func(d *Deployer) { d.logger = logger }
}

func WithRunID(id string) DeployerOption {
	return func(d *Deployer) { d.runID = id }
}

// Replaces the wait before verification.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) DeployerOption {
	return func(d *Deployer) { d.sleep = sleep }
}

func NewDeployer(cfg *Config, chain Chain, opts ...DeployerOption) *Deployer {
	d := &Deployer{
		cfg:    cfg,
		chain:  chain,
		logger: zerolog.Nop(),
		runID:  uuid.New().String(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("run", d.runID).Str("network", cfg.Network).Logger()
	return d
}

func (d *Deployer) RunID() string {
	return d.runID
}

// Result of a deployment run.
type Result struct {
	RunID   string
	Vesting addr.Address
	Token   addr.Address
	// Contract name to the error its verification failed with.
	VerifyErrors map[string]error
}

// Run deploys the vesting actor and then the token, verifies both, points the vesting actor at the
// token and starts the vestings. The outcome is recorded in the output document.
func (d *Deployer) Run(ctx context.Context) (*Result, error) {
	if d.chain.NetworkName() != d.cfg.Network {
		return nil, xerrors.Errorf("chain is on network %q, config names %q", d.chain.NetworkName(), d.cfg.Network)
	}
	p, err := d.cfg.Participants()
	if err != nil {
		return nil, err
	}
	d.logger.Info().Str("owner", d.chain.Sender().String()).Msg("chain of deployment")

	vestingParams := &vesting.ConstructorParams{
		Owner:          d.chain.Sender(),
		InitialHolders: p.InitialHolders,
		Team:           p.Team,
		Partners:       p.Partners,
	}
	vestingAddr, err := d.deploy(ctx, ContractVesting, builtin.VestingActorCodeID, vestingParams)
	if err != nil {
		return nil, err
	}

	tokenParams := &token.ConstructorParams{
		Vesting:         vestingAddr,
		LiquidityPool:   p.LiquidityPool,
		ExchangeListing: p.ExchangeListing,
		Marketing:       p.Marketing,
		Treasury:        p.Treasury,
		Rewards:         p.Rewards,
	}
	tokenAddr, err := d.deploy(ctx, ContractToken, builtin.TokenActorCodeID, tokenParams)
	if err != nil {
		return nil, err
	}

	verifyErrors := d.verify(ctx, []Contract{
		{Name: ContractVesting, Address: vestingAddr, Code: builtin.VestingActorCodeID, ConstructorParams: vestingParams},
		{Name: ContractToken, Address: tokenAddr, Code: builtin.TokenActorCodeID, ConstructorParams: tokenParams},
	})

	for _, dex := range d.cfg.WhitelistedDexes {
		d.logger.Info().Str("dex", dex).Msg("dex whitelisting is not supported, skipping")
	}

	d.logger.Info().Msg("setting token address for vesting")
	if err := d.chain.Call(ctx, vestingAddr, builtin.MethodsVesting.SetToken, &tokenAddr, nil); err != nil {
		return nil, xerrors.Errorf("failed to set token: %w", err)
	}
	d.logger.Info().Msg("starting vesting")
	if err := d.chain.Call(ctx, vestingAddr, builtin.MethodsVesting.StartInitialVestings, runtime.Empty, nil); err != nil {
		return nil, xerrors.Errorf("failed to start vestings: %w", err)
	}
	d.logger.Info().Msg("vesting started")

	deployment := NetworkDeployment{
		Vesting: ContractRecord{Address: vestingAddr.String(), Verification: ExplorerURL(d.cfg.Network, vestingAddr)},
		Borroe:  ContractRecord{Address: tokenAddr.String(), Verification: ExplorerURL(d.cfg.Network, tokenAddr)},
		RunID:   d.runID,
	}
	if err := WriteOutput(d.cfg.OutputPath, d.cfg.Network, deployment); err != nil {
		return nil, xerrors.Errorf("failed to write deployment output: %w", err)
	}
	d.logger.Info().Str("path", d.cfg.OutputPath).Msg("deployment recorded")

	return &Result{
		RunID:        d.runID,
		Vesting:      vestingAddr,
		Token:        tokenAddr,
		VerifyErrors: verifyErrors,
	}, nil
}

func (d *Deployer) deploy(ctx context.Context, name string, code cid.Cid, params interface{}) (addr.Address, error) {
	d.logger.Info().Str("contract", name).Msg("start of deployment")
	a, err := d.chain.Deploy(ctx, code, params)
	if err != nil {
		return addr.Undef, xerrors.Errorf("failed to deploy %s: %w", name, err)
	}
	landed, err := d.chain.CodeAt(ctx, a)
	if err != nil {
		return addr.Undef, xerrors.Errorf("failed to confirm %s at %v: %w", name, a, err)
	}
	if !landed.Equals(code) {
		return addr.Undef, xerrors.Errorf("%s at %v has code %s, expected %s", name, a, builtin.ActorNameByCode(landed), builtin.ActorNameByCode(code))
	}
	d.logger.Info().Str("contract", name).Str("address", a.String()).Msg("deployment finished")
	return a, nil
}

// Verifies contracts concurrently after the configured delay. Failures are logged and reported,
// never returned: an unverified contract is still deployed.
func (d *Deployer) verify(ctx context.Context, contracts []Contract) map[string]error {
	if d.verifier == nil {
		d.logger.Debug().Msg("no verifier configured, skipping verification")
		return nil
	}

	d.logger.Info().Dur("delay", d.cfg.VerifyDelay).Msg("waiting before verification")
	if err := d.sleep(ctx, d.cfg.VerifyDelay); err != nil {
		d.logger.Warn().Err(err).Msg("verification skipped")
		errs := make(map[string]error, len(contracts))
		for _, c := range contracts {
			errs[c.Name] = err
		}
		return errs
	}

	errs := make([]error, len(contracts))
	var g errgroup.Group
	for i, c := range contracts {
		i, c := i, c
		g.Go(func() error {
			d.logger.Info().Str("contract", c.Name).Msg("start of verification")
			if err := d.verifier.Verify(ctx, d.cfg.Network, c); err != nil {
				d.logger.Error().Err(err).Str("contract", c.Name).Msg("verification failed")
				errs[i] = err
				return nil
			}
			d.logger.Info().Str("contract", c.Name).Msg("verification finished")
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]error)
	for i, c := range contracts {
		if errs[i] != nil {
			out[c.Name] = errs[i]
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
