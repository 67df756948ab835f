package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xo-market/xobot/internal/domain"
)

// ReadMarket calls getMarket and decodes the flat output list into a
// domain.Market. resolvedAt of zero means the market has not resolved; the
// winning outcome is only surfaced once the status reaches Resolved.
func ReadMarket(ctx context.Context, market *BoundContract, marketID uint64) (domain.Market, error) {
	out, err := market.Call(ctx, "getMarket", new(big.Int).SetUint64(marketID))
	if err != nil {
		return domain.Market{}, fmt.Errorf("chain: get market %d: %w", marketID, err)
	}
	if len(out) != 14 {
		return domain.Market{}, fmt.Errorf("chain: get market %d: %d outputs, want 14", marketID, len(out))
	}

	m := domain.Market{
		ID:               out[0].(*big.Int).Uint64(),
		Creator:          out[1].(common.Address).Hex(),
		CollateralToken:  out[2].(common.Address).Hex(),
		CollateralAmount: out[3].(*big.Int),
		CreatorFeeBps:    out[4].(uint16),
		OutcomeCount:     out[5].(uint8),
		Status:           domain.MarketStatus(out[6].(uint8)),
		Resolver:         out[7].(common.Address).Hex(),
		CreatedAt:        time.Unix(int64(out[8].(uint64)), 0).UTC(),
		StartsAt:         time.Unix(int64(out[9].(uint64)), 0).UTC(),
		ExpiresAt:        time.Unix(int64(out[10].(uint64)), 0).UTC(),
		MetadataURI:      out[13].(string),
	}

	if resolvedAt := out[11].(uint64); resolvedAt != 0 {
		t := time.Unix(int64(resolvedAt), 0).UTC()
		m.ResolvedAt = &t
	}
	if m.Status == domain.MarketStatusResolved {
		winning := out[12].(uint8)
		m.WinningOutcome = &winning
	}

	return m, nil
}

// ReadPrices calls getPrices and returns the raw 1e18-scaled yes/no pair.
func ReadPrices(ctx context.Context, market *BoundContract, marketID uint64) (yes, no *big.Int, err error) {
	out, err := market.Call(ctx, "getPrices", new(big.Int).SetUint64(marketID))
	if err != nil {
		return nil, nil, fmt.Errorf("chain: get prices %d: %w", marketID, err)
	}
	if len(out) != 2 {
		return nil, nil, fmt.Errorf("chain: get prices %d: %d outputs, want 2", marketID, len(out))
	}
	return out[0].(*big.Int), out[1].(*big.Int), nil
}

// ReadBalance calls balanceOf on the collateral token.
func ReadBalance(ctx context.Context, token *BoundContract, account common.Address) (*big.Int, error) {
	out, err := token.Call(ctx, "balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("chain: balance of %s: %w", account.Hex(), err)
	}
	return out[0].(*big.Int), nil
}
