package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xo-market/xobot/internal/domain"
)

// AllowanceGuard ensures a spender contract holds sufficient delegated
// balance before a value-moving operation. The allowance is read fresh on
// every invocation; it is deliberately not cached because concurrent
// approvals would make a cached value stale.
type AllowanceGuard struct {
	exec   *Executor
	logger *slog.Logger
}

// NewAllowanceGuard creates an AllowanceGuard that confirms approval
// transactions through exec.
func NewAllowanceGuard(exec *Executor, logger *slog.Logger) *AllowanceGuard {
	return &AllowanceGuard{
		exec:   exec,
		logger: logger.With(slog.String("component", "allowance_guard")),
	}
}

// Ensure checks that spender may move at least required base units of the
// token on behalf of owner. When the current allowance already covers the
// requirement it performs zero writes. Otherwise it submits one approval for
// exactly the required amount (never unlimited), awaits confirmation, and
// re-reads the allowance from chain; domain.ErrAllowanceShort is returned if
// the re-read still falls short.
//
// required is a base-unit integer; the 18-decimal conversion happens at the
// caller's boundary via ParseUnits18.
func (g *AllowanceGuard) Ensure(ctx context.Context, token *BoundContract, owner, spender common.Address, required *big.Int) error {
	current, err := g.readAllowance(ctx, token, owner, spender)
	if err != nil {
		return err
	}
	if current.Cmp(required) >= 0 {
		return nil
	}

	g.logger.InfoContext(ctx, "allowance below requirement, approving",
		slog.String("token", token.Address().Hex()),
		slog.String("spender", spender.Hex()),
		slog.String("current", current.String()),
		slog.String("required", required.String()),
	)

	if _, err := g.exec.SubmitAndConfirm(ctx, token, "approve", spender, required); err != nil {
		return fmt.Errorf("chain: approve %s for %s: %w", required.String(), spender.Hex(), err)
	}

	// Re-read from chain rather than assuming the approval took effect; a
	// competing approval in the same window can lower the delegated amount.
	after, err := g.readAllowance(ctx, token, owner, spender)
	if err != nil {
		return err
	}
	if after.Cmp(required) < 0 {
		return fmt.Errorf("chain: %w: have %s, need %s",
			domain.ErrAllowanceShort, after.String(), required.String())
	}
	return nil
}

func (g *AllowanceGuard) readAllowance(ctx context.Context, token *BoundContract, owner, spender common.Address) (*big.Int, error) {
	out, err := token.Call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("chain: read allowance: %w", err)
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: allowance returned %T, want *big.Int", out[0])
	}
	return amount, nil
}
