package token

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
)

const (
	TokenName     = "BORROE"
	TokenSymbol   = "$ROE"
	TokenDecimals = 18
)

// Percentages are expressed in basis points: 10_000 is 100%.
const BasisPointScale = 10_000

// Premint split of the total supply.
const (
	// 5000 for initial holder vesting plus 750 locked for team and partners.
	VestingBP         = 5750
	LiquidityPoolBP   = 1000
	ExchangeListingBP = 1000
	MarketingBP       = 1000
	TreasuryBP        = 1000
	RewardsBP         = 250
)

// One whole token in base units.
var OneToken = big.NewInt(1e18)

// The fixed supply: one billion tokens.
var InitialSupply = big.Mul(big.NewInt(1_000_000_000), OneToken)

// Computes bp basis points of an amount, rounding down.
func BasisPoints(amount abi.TokenAmount, bp int64) abi.TokenAmount {
	return big.Div(big.Mul(amount, big.NewInt(bp)), big.NewInt(BasisPointScale))
}
