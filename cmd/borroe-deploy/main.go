package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	addr "github.com/filecoin-project/go-address"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
	"github.com/borroe/borroe-actors/actors/builtin/vesting"
	"github.com/borroe/borroe-actors/support/deploy"
)

var envFlag = &cli.StringFlag{
	Name:  "env",
	Usage: "path of an optional .env file",
	Value: ".env",
}

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Usage:   "trace, debug, info, warn or error",
	Value:   "info",
	EnvVars: []string{"LOG_LEVEL"},
}

var deployCmd = &cli.Command{
	Name:        "deploy",
	Usage:       "Deploy the vesting and token actors and start the vestings",
	Description: "Deploys to the network named by NETWORK and records the addresses in the output document.",
	Action:      runDeployCmd,
}

var vestingCmd = &cli.Command{
	Name:      "vesting",
	Usage:     "Show the vesting record of a beneficiary on the local network",
	ArgsUsage: "<address>",
	Action:    runVestingCmd,
}

func main() {
	app := &cli.App{
		Name:  "borroe-deploy",
		Usage: "Deploy and inspect the BORROE vesting actors",
		Flags: []cli.Flag{envFlag, logLevelFlag},
		Before: func(c *cli.Context) error {
			return setupLogger(c.String(logLevelFlag.Name))
		},
		Commands: []*cli.Command{
			deployCmd,
			vestingCmd,
		},
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return xerrors.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return nil
}

func runDeployCmd(c *cli.Context) error {
	cfg, err := deploy.LoadConfig(c.String(envFlag.Name))
	if err != nil {
		return err
	}
	log.Info().Str("network", cfg.Network).Msg("chain of deployment")

	if cfg.Network != deploy.NetworkLocal {
		return xerrors.Errorf("no chain client for network %q; only %q is supported", cfg.Network, deploy.NetworkLocal)
	}

	net, err := deploy.OpenLocalNetwork(c.Context, cfg, log.Logger)
	if err != nil {
		return err
	}

	opts := []deploy.DeployerOption{deploy.WithLogger(log.Logger)}
	if cfg.ExplorerAPIURL != "" {
		opts = append(opts, deploy.WithVerifier(deploy.NewHTTPVerifier(cfg.ExplorerAPIURL, cfg.ExplorerAPIKey)))
	}

	res, err := deploy.NewDeployer(cfg, net, opts...).Run(c.Context)
	if err != nil {
		return err
	}
	if err := net.Save(); err != nil {
		return xerrors.Errorf("failed to save local network: %w", err)
	}

	for name, verr := range res.VerifyErrors {
		log.Warn().Err(verr).Str("contract", name).Msg("contract left unverified")
	}
	log.Info().
		Str("run", res.RunID).
		Str("vesting", res.Vesting.String()).
		Str("token", res.Token.String()).
		Msg("deployment complete")
	return nil
}

func runVestingCmd(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.Errorf("expected one address argument, got %d", c.NArg())
	}
	user, err := addr.NewFromString(c.Args().First())
	if err != nil {
		return xerrors.Errorf("invalid address: %w", err)
	}

	cfg, err := deploy.LoadConfig(c.String(envFlag.Name))
	if err != nil {
		return err
	}
	out, err := deploy.ReadOutput(cfg.OutputPath)
	if err != nil {
		return err
	}
	entry, ok := out[deploy.NetworkLocal]
	if !ok {
		return xerrors.Errorf("no local deployment recorded in %s", cfg.OutputPath)
	}
	vestingAddr, err := addr.NewFromString(entry.Vesting.Address)
	if err != nil {
		return xerrors.Errorf("invalid vesting address in %s: %w", cfg.OutputPath, err)
	}

	net, err := deploy.OpenLocalNetwork(c.Context, cfg, log.Logger)
	if err != nil {
		return err
	}
	var rec vesting.VestingRecord
	if err := net.Call(c.Context, vestingAddr, builtin.MethodsVesting.GetUserVesting, &user, &rec); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
