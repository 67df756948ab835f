package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// collateralTokenABI is the ERC-20 subset the orchestrator touches on the XO
// collateral token.
const collateralTokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false}
]`

// multiOutcomeMarketABI covers the market contract's lifecycle operations,
// admin parameters, and read views.
const multiOutcomeMarketABI = `[
	{"type":"function","name":"createMarket","stateMutability":"nonpayable","inputs":[
		{"name":"startsAt","type":"uint64"},{"name":"expiresAt","type":"uint64"},
		{"name":"collateralToken","type":"address"},{"name":"initialCollateral","type":"uint256"},
		{"name":"creatorFeeBps","type":"uint16"},{"name":"outcomeCount","type":"uint8"},
		{"name":"resolver","type":"address"},{"name":"metadataURI","type":"string"}],
		"outputs":[{"name":"marketId","type":"uint256"}]},
	{"type":"function","name":"reviewMarket","stateMutability":"nonpayable","inputs":[
		{"name":"marketId","type":"uint256"},{"name":"isApproved","type":"bool"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"resolveMarket","stateMutability":"nonpayable","inputs":[
		{"name":"marketId","type":"uint256"},{"name":"winningOutcome","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"buy","stateMutability":"nonpayable","inputs":[
		{"name":"marketId","type":"uint256"},{"name":"outcome","type":"uint8"},
		{"name":"amount","type":"uint256"},{"name":"maxCost","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"sell","stateMutability":"nonpayable","inputs":[
		{"name":"marketId","type":"uint256"},{"name":"outcome","type":"uint8"},
		{"name":"amount","type":"uint256"},{"name":"minReturn","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeem","stateMutability":"nonpayable","inputs":[{"name":"marketId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeemDefaultedMarket","stateMutability":"nonpayable","inputs":[{"name":"marketId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getRedeemableAmount","stateMutability":"view","inputs":[
		{"name":"marketId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setMarketResolver","stateMutability":"nonpayable","inputs":[
		{"name":"resolver","type":"address"},{"name":"isPublicResolver","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setMarketResolverFee","stateMutability":"nonpayable","inputs":[{"name":"feeBps","type":"uint16"}],"outputs":[]},
	{"type":"function","name":"getMarketResolver","stateMutability":"view","inputs":[{"name":"resolver","type":"address"}],"outputs":[
		{"name":"resolverAddr","type":"address"},{"name":"isPublicResolver","type":"bool"},{"name":"feeBps","type":"uint16"}]},
	{"type":"function","name":"setCollateralTokenAllowed","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"allowed","type":"bool"}],"outputs":[]},
	{"type":"function","name":"getCollateralTokenAllowed","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setMinimumInitialCollateral","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getMinimumInitialCollateral","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setProtocolFee","stateMutability":"nonpayable","inputs":[{"name":"feeBps","type":"uint16"}],"outputs":[]},
	{"type":"function","name":"getProtocolFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint16"}]},
	{"type":"function","name":"setInsuranceAddress","stateMutability":"nonpayable","inputs":[{"name":"insurance","type":"address"}],"outputs":[]},
	{"type":"function","name":"getInsuranceAddress","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getMarket","stateMutability":"view","inputs":[{"name":"marketId","type":"uint256"}],"outputs":[
		{"name":"id","type":"uint256"},{"name":"creator","type":"address"},
		{"name":"collateralToken","type":"address"},{"name":"collateralAmount","type":"uint256"},
		{"name":"creatorFeeBps","type":"uint16"},{"name":"outcomeCount","type":"uint8"},
		{"name":"status","type":"uint8"},{"name":"resolver","type":"address"},
		{"name":"createdAt","type":"uint64"},{"name":"startsAt","type":"uint64"},
		{"name":"expiresAt","type":"uint64"},{"name":"resolvedAt","type":"uint64"},
		{"name":"winningOutcome","type":"uint8"},{"name":"metadataURI","type":"string"}]},
	{"type":"function","name":"getPrices","stateMutability":"view","inputs":[{"name":"marketId","type":"uint256"}],"outputs":[
		{"name":"yes","type":"uint256"},{"name":"no","type":"uint256"}]},
	{"type":"event","name":"MarketCreated","inputs":[
		{"name":"marketId","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"startsAt","type":"uint64","indexed":false},
		{"name":"expiresAt","type":"uint64","indexed":false},
		{"name":"collateralToken","type":"address","indexed":false},
		{"name":"outcomeCount","type":"uint8","indexed":false},
		{"name":"metadataURI","type":"string","indexed":false}],"anonymous":false}
]`

var (
	// CollateralTokenABI and MultiOutcomeMarketABI are parsed once at init;
	// the JSON above is a compile-time constant so failure is a programming
	// error, not a runtime condition.
	CollateralTokenABI    = mustParseABI(collateralTokenABI)
	MultiOutcomeMarketABI = mustParseABI(multiOutcomeMarketABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
