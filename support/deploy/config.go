package deploy

import (
	"errors"
	"os"
	"strings"
	"time"

	addr "github.com/filecoin-project/go-address"
	"github.com/gookit/validate"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// Network names understood by the deployer.
const (
	NetworkLocal          = "local"
	NetworkPolygonTestnet = "polygon_testnet"
	NetworkPolygonMainnet = "polygon_mainnet"
)

const DefaultVerifyDelay = 90 * time.Second

// Config holds deployment configuration (env + Viper).
type Config struct {
	Network string `validate:"required|in:local,polygon_testnet,polygon_mainnet"`

	// Deploying account. It becomes the vesting owner.
	Owner string `validate:"required"`

	LiquidityPool   string `validate:"required"`
	ExchangeListing string `validate:"required"`
	Marketing       string `validate:"required"`
	Treasury        string `validate:"required"`
	Rewards         string `validate:"required"`
	Team            string `validate:"required"`
	Partners        string `validate:"required"`

	InitialHolders []string `validate:"required|minLen:1"`
	// Parsed for completeness; DEX whitelisting is not performed.
	WhitelistedDexes []string

	VerifyDelay    time.Duration
	ExplorerAPIURL string
	ExplorerAPIKey string

	OutputPath string `validate:"required"`
	// Where the local network's state is kept between runs.
	StatePath string
}

// Environment variables read by LoadConfig.
var envKeys = []string{
	"NETWORK",
	"OWNER_ADDRESS",
	"LIQUIDITY_POOL_ADDRESS",
	"EXCHANGE_LISTING_ADDRESS",
	"MARKETING_ADDRESS",
	"TREASURY_ADDRESS",
	"REWARDS_ADDRESS",
	"TEAM_ADDRESS",
	"PARTNERS_ADDRESS",
	"INITIAL_HOLDERS",
	"WHITELISTED_DEXES",
	"VERIFY_DELAY",
	"EXPLORER_API_URL",
	"EXPLORER_API_KEY",
	"OUTPUT_PATH",
	"STATE_PATH",
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
}

// LoadConfig loads config from env and an optional .env file at envFile.
// Environment variables take precedence over the file.
func LoadConfig(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// The file is optional; the environment alone is enough.
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, xerrors.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, xerrors.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetDefault("NETWORK", NetworkLocal)
	v.SetDefault("VERIFY_DELAY", DefaultVerifyDelay)
	v.SetDefault("OUTPUT_PATH", "deployOutput.json")
	v.SetDefault("STATE_PATH", ".borroe/local.vm")

	get := func(key string) string { return strings.TrimSpace(v.GetString(key)) }
	cfg := &Config{
		Network:          get("NETWORK"),
		Owner:            get("OWNER_ADDRESS"),
		LiquidityPool:    get("LIQUIDITY_POOL_ADDRESS"),
		ExchangeListing:  get("EXCHANGE_LISTING_ADDRESS"),
		Marketing:        get("MARKETING_ADDRESS"),
		Treasury:         get("TREASURY_ADDRESS"),
		Rewards:          get("REWARDS_ADDRESS"),
		Team:             get("TEAM_ADDRESS"),
		Partners:         get("PARTNERS_ADDRESS"),
		InitialHolders:   SplitList(v.GetString("INITIAL_HOLDERS")),
		WhitelistedDexes: SplitList(v.GetString("WHITELISTED_DEXES")),
		VerifyDelay:      v.GetDuration("VERIFY_DELAY"),
		ExplorerAPIURL:   get("EXPLORER_API_URL"),
		ExplorerAPIKey:   get("EXPLORER_API_KEY"),
		OutputPath:       get("OUTPUT_PATH"),
		StatePath:        get("STATE_PATH"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks required fields and that every address parses.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return xerrors.Errorf("invalid deploy config: %w", v.Errors)
	}
	if c.VerifyDelay < 0 {
		return xerrors.Errorf("invalid deploy config: negative verify delay %s", c.VerifyDelay)
	}
	if _, err := c.Participants(); err != nil {
		return xerrors.Errorf("invalid deploy config: %w", err)
	}
	return nil
}

// Addresses named by the configuration, parsed.
type Participants struct {
	Owner           addr.Address
	LiquidityPool   addr.Address
	ExchangeListing addr.Address
	Marketing       addr.Address
	Treasury        addr.Address
	Rewards         addr.Address
	Team            addr.Address
	Partners        addr.Address
	InitialHolders  []addr.Address
}

func (c *Config) Participants() (*Participants, error) {
	var p Participants
	fields := []struct {
		name string
		raw  string
		out  *addr.Address
	}{
		{"owner", c.Owner, &p.Owner},
		{"liquidity pool", c.LiquidityPool, &p.LiquidityPool},
		{"exchange listing", c.ExchangeListing, &p.ExchangeListing},
		{"marketing", c.Marketing, &p.Marketing},
		{"treasury", c.Treasury, &p.Treasury},
		{"rewards", c.Rewards, &p.Rewards},
		{"team", c.Team, &p.Team},
		{"partners", c.Partners, &p.Partners},
	}
	for _, f := range fields {
		a, err := addr.NewFromString(f.raw)
		if err != nil {
			return nil, xerrors.Errorf("invalid %s address %q: %w", f.name, f.raw, err)
		}
		*f.out = a
	}
	for i, raw := range c.InitialHolders {
		a, err := addr.NewFromString(raw)
		if err != nil {
			return nil, xerrors.Errorf("invalid initial holder %d address %q: %w", i, raw, err)
		}
		p.InitialHolders = append(p.InitialHolders, a)
	}
	return &p, nil
}

// All distinct addresses named by the configuration.
func (p *Participants) All() []addr.Address {
	seen := map[addr.Address]bool{}
	var out []addr.Address
	add := func(a addr.Address) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, a := range []addr.Address{p.Owner, p.LiquidityPool, p.ExchangeListing, p.Marketing, p.Treasury, p.Rewards, p.Team, p.Partners} {
		add(a)
	}
	for _, a := range p.InitialHolders {
		add(a)
	}
	return out
}
