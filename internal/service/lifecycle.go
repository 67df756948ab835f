package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/xo-market/xobot/internal/chain"
	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/notify"
	"github.com/xo-market/xobot/internal/platform/indexer"
)

// Notification event types emitted by lifecycle operations.
const (
	EventOperationFailed = "operation_failed"
	EventMarketCreated   = "market_created"
	EventSchedulePending = "schedule_pending"
)

// scheduleRetryDelay is how long the reconciler waits before the first retry
// of a failed scheduling call.
const scheduleRetryDelay = time.Minute

// Lifecycle executes market operations end to end: resolving a chain handle,
// guarding allowances, submitting transactions, confirming receipts, and
// running the off-chain follow-ups. Every public operation converts its
// outcome into an OperationStatus; callers never receive a raw error from a
// state-changing operation.
type Lifecycle struct {
	resolver  *chain.Resolver
	gateway   *chain.Gateway
	exec      *chain.Executor
	guard     *chain.AllowanceGuard
	indexer   *indexer.Client
	schedules domain.ScheduleStore
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewLifecycle creates a Lifecycle. schedules and notifier may be nil;
// scheduling failures are then terminal and notifications are skipped.
func NewLifecycle(
	resolver *chain.Resolver,
	gateway *chain.Gateway,
	exec *chain.Executor,
	guard *chain.AllowanceGuard,
	idx *indexer.Client,
	schedules domain.ScheduleStore,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Lifecycle {
	return &Lifecycle{
		resolver:  resolver,
		gateway:   gateway,
		exec:      exec,
		guard:     guard,
		indexer:   idx,
		schedules: schedules,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateMarketParams describes a market to create directly, without a source
// cast. Amounts are decimal token strings ("1.5"), converted to 18-decimal
// units on submission.
type CreateMarketParams struct {
	ChainID          uint64
	Name             string
	Description      string
	Image            string
	Category         string
	StartsAt         time.Time
	ExpiresAt        time.Time
	CollateralAmount string
	CreatorFeeBps    uint16
	OutcomeCount     uint8
	// Resolver is the hex address allowed to resolve the market. Empty means
	// the signer resolves it.
	Resolver string
}

// CreateFromCastParams describes a market settled automatically against a
// Farcaster cast's engagement numbers.
type CreateFromCastParams struct {
	ChainID          uint64
	CastURL          string
	SettlementFactor string
	TargetCount      int64
	Expiry           time.Time
	CollateralAmount string
	CreatorFeeBps    uint16
}

// TradeParams describes a buy or sell. Amount is the position size in outcome
// tokens; Limit is maxCost for buys and minReturn for sells. An empty Limit
// defaults to Amount for buys and zero for sells.
type TradeParams struct {
	ChainID  uint64
	MarketID uint64
	Outcome  uint8
	Amount   string
	Limit    string
}

// CreateMarket uploads the market metadata, ensures collateral allowance, and
// submits the creation transaction.
func (l *Lifecycle) CreateMarket(ctx context.Context, p CreateMarketParams) domain.OperationStatus {
	const op = "create_market"
	opID := uuid.NewString()

	if p.ChainID == 0 {
		return l.skipped(opID, op, "no chain selected")
	}

	handle, market, token, err := l.signerContracts(ctx, p.ChainID)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	amount, err := chain.ParseUnits18(p.CollateralAmount)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	resolverAddr := handle.From()
	if p.Resolver != "" {
		resolverAddr, err = parseAddress(p.Resolver)
		if err != nil {
			return l.fail(ctx, opID, op, "", err)
		}
	}

	hash, err := l.indexer.UploadMetadata(ctx, indexer.MarketMetadata{
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Attributes: []indexer.MetadataAttribute{
			{TraitType: "category", Value: p.Category},
		},
	})
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	if err := l.guard.Ensure(ctx, token, handle.From(), market.Address(), amount); err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	receipt, err := l.exec.SubmitAndConfirm(ctx, market, "createMarket",
		uint64(p.StartsAt.Unix()), uint64(p.ExpiresAt.Unix()),
		token.Address(), amount,
		p.CreatorFeeBps, p.OutcomeCount,
		resolverAddr, "ipfs://"+hash,
	)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	created, err := extractCreated(receipt, market)
	if err != nil {
		return l.fail(ctx, opID, op, receipt.TxHash.Hex(), err)
	}

	l.notify(ctx, EventMarketCreated, "Market created",
		fmt.Sprintf("market %d created in tx %s", created.MarketID, receipt.TxHash.Hex()))

	return l.ok(opID, receipt.TxHash.Hex(), fmt.Sprintf("market %d created", created.MarketID))
}

// CreateFromCast runs the cast-backed creation saga: validate the cast,
// upload metadata, create the market on-chain, then register the settlement
// schedule. A scheduling failure after a confirmed transaction does not roll
// anything back; the pending schedule is persisted for the reconciler and the
// operation reports partial success.
func (l *Lifecycle) CreateFromCast(ctx context.Context, p CreateFromCastParams) domain.OperationStatus {
	const op = "create_from_cast"
	opID := uuid.NewString()

	if p.ChainID == 0 {
		return l.skipped(opID, op, "no chain selected")
	}

	handle, market, token, err := l.signerContracts(ctx, p.ChainID)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	verdict, err := l.indexer.Validate(ctx, indexer.ValidateRequest{
		CastURL:          p.CastURL,
		SettlementFactor: p.SettlementFactor,
		Count:            p.TargetCount,
	})
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}
	if !verdict.Valid {
		return l.fail(ctx, opID, op, "", fmt.Errorf("cast rejected: %s", verdict.Reason))
	}

	cast, err := l.indexer.GetCast(ctx, p.CastURL)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	amount, err := chain.ParseUnits18(p.CollateralAmount)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	hash, err := l.indexer.UploadMetadata(ctx, castMetadata(cast, p))
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	if err := l.guard.Ensure(ctx, token, handle.From(), market.Address(), amount); err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	receipt, err := l.exec.SubmitAndConfirm(ctx, market, "createMarket",
		uint64(time.Now().Unix()), uint64(p.Expiry.Unix()),
		token.Address(), amount,
		p.CreatorFeeBps, uint8(2),
		handle.From(), "ipfs://"+hash,
	)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	created, err := extractCreated(receipt, market)
	if err != nil {
		return l.fail(ctx, opID, op, receipt.TxHash.Hex(), err)
	}

	// The market exists on-chain from here on. Any scheduling failure must be
	// reconciled with the known id, never by recreating the market.
	scheduleErr := l.indexer.Schedule(ctx, indexer.ScheduleRequest{
		MarketID:         created.MarketID,
		CastURL:          p.CastURL,
		Expiry:           p.Expiry.UTC().Format(time.RFC1123),
		SettlementFactor: p.SettlementFactor,
		Count:            p.TargetCount,
	})
	if scheduleErr == nil {
		l.notify(ctx, EventMarketCreated, "Market created",
			fmt.Sprintf("cast market %d created in tx %s", created.MarketID, receipt.TxHash.Hex()))
		return l.ok(opID, receipt.TxHash.Hex(), fmt.Sprintf("market %d created and scheduled", created.MarketID))
	}

	l.logger.WarnContext(ctx, "lifecycle: schedule call failed, queued for reconciliation",
		slog.Uint64("market_id", created.MarketID),
		slog.String("error", scheduleErr.Error()),
	)
	if l.schedules != nil {
		now := time.Now()
		pending := domain.PendingSchedule{
			MarketID:         created.MarketID,
			CastURL:          p.CastURL,
			Expiry:           p.Expiry,
			SettlementFactor: p.SettlementFactor,
			TargetCount:      p.TargetCount,
			LastError:        scheduleErr.Error(),
			CreatedAt:        now,
			NextAttemptAt:    now.Add(scheduleRetryDelay),
		}
		if err := l.schedules.Insert(ctx, pending); err != nil {
			l.logger.ErrorContext(ctx, "lifecycle: persist pending schedule failed",
				slog.Uint64("market_id", created.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}
	l.notify(ctx, EventSchedulePending, "Market scheduling pending",
		fmt.Sprintf("market %d created (tx %s) but scheduling failed: %v",
			created.MarketID, receipt.TxHash.Hex(), scheduleErr))

	return domain.OperationStatus{
		OpID:    opID,
		State:   domain.OperationPartial,
		Message: fmt.Sprintf("market %d created; scheduling queued for retry", created.MarketID),
		TxHash:  receipt.TxHash.Hex(),
	}
}

// Review approves or rejects a pending market.
func (l *Lifecycle) Review(ctx context.Context, chainID, marketID uint64, approved bool) domain.OperationStatus {
	return l.transact(ctx, "review_market", chainID, "reviewMarket",
		new(big.Int).SetUint64(marketID), approved, []byte{})
}

// Resolve settles a market on the winning outcome.
func (l *Lifecycle) Resolve(ctx context.Context, chainID, marketID uint64, winningOutcome uint8) domain.OperationStatus {
	return l.transact(ctx, "resolve_market", chainID, "resolveMarket",
		new(big.Int).SetUint64(marketID), winningOutcome)
}

// Buy purchases outcome tokens, approving exactly the collateral cap first.
func (l *Lifecycle) Buy(ctx context.Context, p TradeParams) domain.OperationStatus {
	const op = "buy"
	opID := uuid.NewString()

	if p.ChainID == 0 {
		return l.skipped(opID, op, "no chain selected")
	}

	handle, market, token, err := l.signerContracts(ctx, p.ChainID)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	amount, err := chain.ParseUnits18(p.Amount)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}
	maxCost := new(big.Int).Set(amount)
	if p.Limit != "" {
		maxCost, err = chain.ParseUnits18(p.Limit)
		if err != nil {
			return l.fail(ctx, opID, op, "", err)
		}
	}

	if err := l.guard.Ensure(ctx, token, handle.From(), market.Address(), maxCost); err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	receipt, err := l.exec.SubmitAndConfirm(ctx, market, "buy",
		new(big.Int).SetUint64(p.MarketID), p.Outcome, amount, maxCost)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}
	return l.ok(opID, receipt.TxHash.Hex(), fmt.Sprintf("bought outcome %d on market %d", p.Outcome, p.MarketID))
}

// Sell sells outcome tokens back to the market. No allowance is needed;
// outcome tokens are burned by the market contract directly.
func (l *Lifecycle) Sell(ctx context.Context, p TradeParams) domain.OperationStatus {
	const op = "sell"
	opID := uuid.NewString()

	if p.ChainID == 0 {
		return l.skipped(opID, op, "no chain selected")
	}

	amount, err := chain.ParseUnits18(p.Amount)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}
	minReturn := new(big.Int)
	if p.Limit != "" {
		minReturn, err = chain.ParseUnits18(p.Limit)
		if err != nil {
			return l.fail(ctx, opID, op, "", err)
		}
	}

	return l.transact(ctx, op, p.ChainID, "sell",
		new(big.Int).SetUint64(p.MarketID), p.Outcome, amount, minReturn)
}

// Redeem claims winnings from a resolved market.
func (l *Lifecycle) Redeem(ctx context.Context, chainID, marketID uint64) domain.OperationStatus {
	return l.transact(ctx, "redeem", chainID, "redeem", new(big.Int).SetUint64(marketID))
}

// RedeemDefaulted refunds collateral from a defaulted market.
func (l *Lifecycle) RedeemDefaulted(ctx context.Context, chainID, marketID uint64) domain.OperationStatus {
	return l.transact(ctx, "redeem_defaulted", chainID, "redeemDefaultedMarket",
		new(big.Int).SetUint64(marketID))
}

// Faucet requests test collateral for the signer, or for recipient when one
// is given.
func (l *Lifecycle) Faucet(ctx context.Context, recipient string) domain.OperationStatus {
	const op = "faucet"
	opID := uuid.NewString()

	if recipient == "" {
		addr, ok := l.resolver.SignerAddress()
		if !ok {
			return l.fail(ctx, opID, op, "", domain.ErrNoSigner)
		}
		recipient = addr.Hex()
	}

	if err := l.indexer.Faucet(ctx, recipient); err != nil {
		return l.fail(ctx, opID, op, "", err)
	}
	return l.ok(opID, "", "faucet drip requested for "+recipient)
}

// RedeemableAmount returns the collateral redeemable for a position, as a
// decimal token string.
func (l *Lifecycle) RedeemableAmount(ctx context.Context, chainID, marketID uint64, amount string) (string, error) {
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return "", err
	}
	units, err := chain.ParseUnits18(amount)
	if err != nil {
		return "", err
	}
	out, err := market.Call(ctx, "getRedeemableAmount", new(big.Int).SetUint64(marketID), units)
	if err != nil {
		return "", fmt.Errorf("lifecycle: redeemable amount: %w", err)
	}
	return chain.FormatUnits18(out[0].(*big.Int)), nil
}

// TokenBalance returns an account's collateral token balance as a decimal
// token string. An empty account means the signer.
func (l *Lifecycle) TokenBalance(ctx context.Context, chainID uint64, account string) (string, error) {
	addr, err := l.accountOrSigner(account)
	if err != nil {
		return "", err
	}
	handle, err := l.resolver.Resolve(ctx, chainID)
	if err != nil {
		return "", err
	}
	token, ok := l.gateway.Contract(chain.ContractCollateralToken, handle)
	if !ok {
		return "", domain.ErrChainNotConfigured
	}
	balance, err := chain.ReadBalance(ctx, token, addr)
	if err != nil {
		return "", err
	}
	return chain.FormatUnits18(balance), nil
}

// Market reads a market's on-chain record.
func (l *Lifecycle) Market(ctx context.Context, chainID, marketID uint64) (domain.Market, error) {
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return domain.Market{}, err
	}
	return chain.ReadMarket(ctx, market, marketID)
}

// --------------------------------------------------------------------------
// Admin parameters
// --------------------------------------------------------------------------

// SetMarketResolver registers a resolver address.
func (l *Lifecycle) SetMarketResolver(ctx context.Context, chainID uint64, resolver string, isPublic bool) domain.OperationStatus {
	const op = "set_market_resolver"
	addr, err := parseAddress(resolver)
	if err != nil {
		return l.fail(ctx, uuid.NewString(), op, "", err)
	}
	return l.transact(ctx, op, chainID, "setMarketResolver", addr, isPublic)
}

// SetMarketResolverFee sets the caller's resolver fee in basis points.
func (l *Lifecycle) SetMarketResolverFee(ctx context.Context, chainID uint64, feeBps uint16) domain.OperationStatus {
	return l.transact(ctx, "set_market_resolver_fee", chainID, "setMarketResolverFee", feeBps)
}

// MarketResolver reads a resolver's registration.
func (l *Lifecycle) MarketResolver(ctx context.Context, chainID uint64, resolver string) (domain.MarketResolverInfo, error) {
	addr, err := parseAddress(resolver)
	if err != nil {
		return domain.MarketResolverInfo{}, err
	}
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return domain.MarketResolverInfo{}, err
	}
	out, err := market.Call(ctx, "getMarketResolver", addr)
	if err != nil {
		return domain.MarketResolverInfo{}, fmt.Errorf("lifecycle: get market resolver: %w", err)
	}
	return domain.MarketResolverInfo{
		Resolver:         out[0].(common.Address).Hex(),
		IsPublicResolver: out[1].(bool),
		FeeBps:           out[2].(uint16),
	}, nil
}

// SetCollateralTokenAllowed whitelists or removes a collateral token.
func (l *Lifecycle) SetCollateralTokenAllowed(ctx context.Context, chainID uint64, token string, allowed bool) domain.OperationStatus {
	const op = "set_collateral_token_allowed"
	addr, err := parseAddress(token)
	if err != nil {
		return l.fail(ctx, uuid.NewString(), op, "", err)
	}
	return l.transact(ctx, op, chainID, "setCollateralTokenAllowed", addr, allowed)
}

// CollateralTokenAllowed reports whether a token is whitelisted as collateral.
func (l *Lifecycle) CollateralTokenAllowed(ctx context.Context, chainID uint64, token string) (bool, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return false, err
	}
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return false, err
	}
	out, err := market.Call(ctx, "getCollateralTokenAllowed", addr)
	if err != nil {
		return false, fmt.Errorf("lifecycle: get collateral token allowed: %w", err)
	}
	return out[0].(bool), nil
}

// SetMinimumInitialCollateral sets the creation floor.
func (l *Lifecycle) SetMinimumInitialCollateral(ctx context.Context, chainID uint64, amount string) domain.OperationStatus {
	const op = "set_minimum_initial_collateral"
	units, err := chain.ParseUnits18(amount)
	if err != nil {
		return l.fail(ctx, uuid.NewString(), op, "", err)
	}
	return l.transact(ctx, op, chainID, "setMinimumInitialCollateral", units)
}

// MinimumInitialCollateral reads the creation floor as a decimal token string.
func (l *Lifecycle) MinimumInitialCollateral(ctx context.Context, chainID uint64) (string, error) {
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return "", err
	}
	out, err := market.Call(ctx, "getMinimumInitialCollateral")
	if err != nil {
		return "", fmt.Errorf("lifecycle: get minimum initial collateral: %w", err)
	}
	return chain.FormatUnits18(out[0].(*big.Int)), nil
}

// SetProtocolFee sets the protocol fee in basis points.
func (l *Lifecycle) SetProtocolFee(ctx context.Context, chainID uint64, feeBps uint16) domain.OperationStatus {
	return l.transact(ctx, "set_protocol_fee", chainID, "setProtocolFee", feeBps)
}

// ProtocolFee reads the protocol fee in basis points.
func (l *Lifecycle) ProtocolFee(ctx context.Context, chainID uint64) (uint16, error) {
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return 0, err
	}
	out, err := market.Call(ctx, "getProtocolFee")
	if err != nil {
		return 0, fmt.Errorf("lifecycle: get protocol fee: %w", err)
	}
	return out[0].(uint16), nil
}

// SetInsuranceAddress sets the insurance fund address.
func (l *Lifecycle) SetInsuranceAddress(ctx context.Context, chainID uint64, insurance string) domain.OperationStatus {
	const op = "set_insurance_address"
	addr, err := parseAddress(insurance)
	if err != nil {
		return l.fail(ctx, uuid.NewString(), op, "", err)
	}
	return l.transact(ctx, op, chainID, "setInsuranceAddress", addr)
}

// InsuranceAddress reads the insurance fund address.
func (l *Lifecycle) InsuranceAddress(ctx context.Context, chainID uint64) (string, error) {
	market, err := l.readContract(ctx, chainID)
	if err != nil {
		return "", err
	}
	out, err := market.Call(ctx, "getInsuranceAddress")
	if err != nil {
		return "", fmt.Errorf("lifecycle: get insurance address: %w", err)
	}
	return out[0].(common.Address).Hex(), nil
}

// --------------------------------------------------------------------------
// Internal plumbing
// --------------------------------------------------------------------------

// transact is the shared path for single-transaction operations with no
// off-chain follow-up.
func (l *Lifecycle) transact(ctx context.Context, op string, chainID uint64, method string, args ...any) domain.OperationStatus {
	opID := uuid.NewString()

	if chainID == 0 {
		return l.skipped(opID, op, "no chain selected")
	}

	_, market, _, err := l.signerContracts(ctx, chainID)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}

	receipt, err := l.exec.SubmitAndConfirm(ctx, market, method, args...)
	if err != nil {
		return l.fail(ctx, opID, op, "", err)
	}
	return l.ok(opID, receipt.TxHash.Hex(), op+" confirmed")
}

// signerContracts resolves a signer handle for chainID and binds the market
// and collateral token contracts. A read-only handle yields ErrNoSigner
// before any network call is attempted.
func (l *Lifecycle) signerContracts(ctx context.Context, chainID uint64) (*chain.Handle, *chain.BoundContract, *chain.BoundContract, error) {
	handle, err := l.resolver.Resolve(ctx, chainID)
	if err != nil {
		return nil, nil, nil, err
	}
	if handle.Mode() != chain.ModeSigner {
		return nil, nil, nil, domain.ErrNoSigner
	}
	market, ok := l.gateway.Contract(chain.ContractMultiOutcomeMarket, handle)
	if !ok {
		return nil, nil, nil, domain.ErrChainNotConfigured
	}
	token, ok := l.gateway.Contract(chain.ContractCollateralToken, handle)
	if !ok {
		return nil, nil, nil, domain.ErrChainNotConfigured
	}
	return handle, market, token, nil
}

func (l *Lifecycle) readContract(ctx context.Context, chainID uint64) (*chain.BoundContract, error) {
	handle, err := l.resolver.Resolve(ctx, chainID)
	if err != nil {
		return nil, err
	}
	market, ok := l.gateway.Contract(chain.ContractMultiOutcomeMarket, handle)
	if !ok {
		return nil, domain.ErrChainNotConfigured
	}
	return market, nil
}

func (l *Lifecycle) accountOrSigner(account string) (common.Address, error) {
	if account != "" {
		return parseAddress(account)
	}
	addr, ok := l.resolver.SignerAddress()
	if !ok {
		return common.Address{}, domain.ErrNoSigner
	}
	return addr, nil
}

// ok builds a success status.
func (l *Lifecycle) ok(opID, txHash, message string) domain.OperationStatus {
	return domain.OperationStatus{
		OpID:    opID,
		State:   domain.OperationSucceeded,
		Message: message,
		TxHash:  txHash,
	}
}

// skipped builds a skipped status without touching the network.
func (l *Lifecycle) skipped(opID, op, reason string) domain.OperationStatus {
	l.logger.Debug("lifecycle: operation skipped",
		slog.String("op", op),
		slog.String("reason", reason),
	)
	return domain.OperationStatus{
		OpID:    opID,
		State:   domain.OperationSkipped,
		Message: reason,
	}
}

// fail is the single conversion point from errors to operation outcomes.
// Precondition errors (no signer, unconfigured chain) become skips; anything
// else becomes a failure and raises a notification.
func (l *Lifecycle) fail(ctx context.Context, opID, op, txHash string, err error) domain.OperationStatus {
	if errors.Is(err, domain.ErrNoSigner) || errors.Is(err, domain.ErrChainNotConfigured) {
		return l.skipped(opID, op, err.Error())
	}

	var reverted *domain.TxRevertedError
	if errors.As(err, &reverted) && txHash == "" {
		txHash = reverted.TxHash
	}

	l.logger.ErrorContext(ctx, "lifecycle: operation failed",
		slog.String("op", op),
		slog.String("op_id", opID),
		slog.String("error", err.Error()),
	)
	l.notify(ctx, EventOperationFailed, "Operation failed",
		fmt.Sprintf("%s (op %s): %v", op, opID, err))

	return domain.OperationStatus{
		OpID:    opID,
		State:   domain.OperationFailed,
		Message: err.Error(),
		TxHash:  txHash,
	}
}

func (l *Lifecycle) notify(ctx context.Context, event, title, message string) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, event, title, message); err != nil {
		l.logger.WarnContext(ctx, "lifecycle: notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// extractCreated pulls the MarketCreated event out of a confirmed creation
// receipt. A confirmed creation without the event is treated as an error; the
// market id is unknowable without it.
func extractCreated(receipt *types.Receipt, market *chain.BoundContract) (domain.CreatedMarketEvent, error) {
	args, ok := chain.ExtractEvent(receipt, market, "MarketCreated")
	if !ok {
		return domain.CreatedMarketEvent{}, fmt.Errorf("lifecycle: %w: MarketCreated missing from receipt %s",
			domain.ErrEventNotFound, receipt.TxHash.Hex())
	}

	created := domain.CreatedMarketEvent{
		MarketID:        args["marketId"].(*big.Int).Uint64(),
		Creator:         args["creator"].(common.Address).Hex(),
		StartsAt:        time.Unix(int64(args["startsAt"].(uint64)), 0).UTC(),
		ExpiresAt:       time.Unix(int64(args["expiresAt"].(uint64)), 0).UTC(),
		CollateralToken: args["collateralToken"].(common.Address).Hex(),
		OutcomeCount:    args["outcomeCount"].(uint8),
		MetadataURI:     args["metadataURI"].(string),
	}
	return created, nil
}

// castMetadata composes the metadata document for a cast-backed market.
func castMetadata(cast indexer.Cast, p CreateFromCastParams) indexer.MarketMetadata {
	name := cast.Text
	if len(name) > 80 {
		name = name[:80]
	}
	return indexer.MarketMetadata{
		Name: name,
		Description: fmt.Sprintf("Will @%s's cast reach %d %s by %s?",
			cast.Author.Username, p.TargetCount, p.SettlementFactor,
			p.Expiry.UTC().Format(time.RFC1123)),
		Attributes: []indexer.MetadataAttribute{
			{TraitType: "cast_url", Value: p.CastURL},
			{TraitType: "settlement_factor", Value: p.SettlementFactor},
			{TraitType: "target_count", Value: p.TargetCount},
			{TraitType: "author_fid", Value: cast.Author.FID},
		},
	}
}

// parseAddress validates and decodes a hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("lifecycle: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
