package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xo-market/xobot/internal/chain"
	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/platform/indexer"
)

// priceReadConcurrency bounds the number of in-flight getPrices calls during
// a sync pass.
const priceReadConcurrency = 8

// broadcastChannel is the websocket channel market view updates go out on.
const broadcastChannel = "markets"

// Aggregator merges indexed market records with live on-chain pricing into
// the MarketView projection served to callers. Price reads are fault
// isolated: a market whose read fails still appears in the result with a
// 50/50 split, but is never written to the cache in that state.
type Aggregator struct {
	indexer      *indexer.Client
	resolver     *chain.Resolver
	gateway      *chain.Gateway
	cache        domain.ViewCache
	broadcaster  domain.Broadcaster
	chainID      uint64
	listLimit    int
	syncInterval time.Duration
	logger       *slog.Logger
}

// NewAggregator creates an Aggregator. cache and broadcaster may be nil; the
// aggregator then skips those steps.
func NewAggregator(
	idx *indexer.Client,
	resolver *chain.Resolver,
	gateway *chain.Gateway,
	cache domain.ViewCache,
	broadcaster domain.Broadcaster,
	chainID uint64,
	listLimit int,
	syncInterval time.Duration,
	logger *slog.Logger,
) *Aggregator {
	if listLimit <= 0 {
		listLimit = 20
	}
	return &Aggregator{
		indexer:      idx,
		resolver:     resolver,
		gateway:      gateway,
		cache:        cache,
		broadcaster:  broadcaster,
		chainID:      chainID,
		listLimit:    listLimit,
		syncInterval: syncInterval,
		logger:       logger,
	}
}

// ListMarkets returns the current market views, preferring the cache and
// falling back to a full build when the cache is empty or unavailable.
func (a *Aggregator) ListMarkets(ctx context.Context) ([]domain.MarketView, error) {
	if a.cache != nil {
		views, err := a.cache.GetAll(ctx)
		if err == nil && len(views) > 0 {
			return views, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			a.logger.WarnContext(ctx, "aggregator: view cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	views, err := a.buildViews(ctx)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetMarket returns a single market view. A cache hit is served directly;
// otherwise the view is built from the indexer record and a live price read.
func (a *Aggregator) GetMarket(ctx context.Context, marketID uint64) (domain.MarketView, error) {
	if a.cache != nil {
		if view, err := a.cache.Get(ctx, marketID); err == nil {
			return view, nil
		}
	}

	markets, err := a.indexer.ListMarkets(ctx, a.listLimit)
	if err != nil {
		return domain.MarketView{}, fmt.Errorf("aggregator: get market %d: %w", marketID, err)
	}
	for _, m := range markets {
		if m.MarketID != marketID {
			continue
		}
		view, ok := a.priceView(ctx, m)
		if ok && a.cache != nil {
			if err := a.cache.Set(ctx, view); err != nil {
				a.logger.WarnContext(ctx, "aggregator: cache write failed",
					slog.Uint64("market_id", marketID),
					slog.String("error", err.Error()),
				)
			}
		}
		return view, nil
	}
	return domain.MarketView{}, fmt.Errorf("aggregator: get market %d: %w", marketID, domain.ErrNotFound)
}

// Chart returns the price-history chart for a market.
func (a *Aggregator) Chart(ctx context.Context, marketID uint64) ([]domain.PricePoint, error) {
	return a.indexer.GetChart(ctx, marketID)
}

// Run drives periodic sync passes until ctx is cancelled. Each pass rebuilds
// every view, refreshes the cache, and broadcasts the result to connected
// clients.
func (a *Aggregator) Run(ctx context.Context) error {
	if a.syncInterval <= 0 {
		return fmt.Errorf("aggregator: sync interval not configured")
	}

	ticker := time.NewTicker(a.syncInterval)
	defer ticker.Stop()

	a.syncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.syncOnce(ctx)
		}
	}
}

func (a *Aggregator) syncOnce(ctx context.Context) {
	start := time.Now()
	views, err := a.buildViews(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "aggregator: sync pass failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if a.broadcaster != nil {
		a.broadcaster.Broadcast(broadcastChannel, views)
	}

	a.logger.InfoContext(ctx, "aggregator: sync pass complete",
		slog.Int("markets", len(views)),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// buildViews fetches the indexed market list, deduplicates it, and attaches
// live prices to each record concurrently.
func (a *Aggregator) buildViews(ctx context.Context) ([]domain.MarketView, error) {
	markets, err := a.indexer.ListMarkets(ctx, a.listLimit)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list markets: %w", err)
	}
	markets = dedupeMarkets(markets)

	views := make([]domain.MarketView, len(markets))
	priced := make([]bool, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceReadConcurrency)
	for i, m := range markets {
		g.Go(func() error {
			views[i], priced[i] = a.priceView(gctx, m)
			return nil
		})
	}
	// Workers never return errors; failures degrade to 50/50 views.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.cache != nil {
		fresh := make([]domain.MarketView, 0, len(views))
		for i, view := range views {
			if priced[i] {
				fresh = append(fresh, view)
			}
		}
		if len(fresh) > 0 {
			if err := a.cache.SetAll(ctx, fresh); err != nil {
				a.logger.WarnContext(ctx, "aggregator: cache refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return views, nil
}

// priceView builds the view for one market. The second return reports whether
// the live price read succeeded; on failure the view carries the 50/50
// default and must not be cached.
func (a *Aggregator) priceView(ctx context.Context, m domain.IndexedMarket) (domain.MarketView, bool) {
	view := domain.MarketView{
		IndexedMarket: m,
		YesPercentage: 50,
		NoPercentage:  50,
	}

	yes, no, err := a.readPrices(ctx, m.MarketID)
	if err != nil {
		a.logger.WarnContext(ctx, "aggregator: price read failed",
			slog.Uint64("market_id", m.MarketID),
			slog.String("error", err.Error()),
		)
		return view, false
	}

	view.YesPercentage, view.NoPercentage = PricePercentages(yes, no)
	return view, true
}

func (a *Aggregator) readPrices(ctx context.Context, marketID uint64) (yes, no *big.Int, err error) {
	handle, err := a.resolver.Resolve(ctx, a.chainID)
	if err != nil {
		return nil, nil, err
	}
	market, ok := a.gateway.Contract(chain.ContractMultiOutcomeMarket, handle)
	if !ok {
		return nil, nil, domain.ErrChainNotConfigured
	}
	return chain.ReadPrices(ctx, market, marketID)
}

// dedupeMarkets drops duplicate market ids, keeping the first occurrence.
// The indexer occasionally returns the same market twice across pages.
func dedupeMarkets(markets []domain.IndexedMarket) []domain.IndexedMarket {
	seen := make(map[uint64]struct{}, len(markets))
	out := markets[:0]
	for _, m := range markets {
		if _, dup := seen[m.MarketID]; dup {
			continue
		}
		seen[m.MarketID] = struct{}{}
		out = append(out, m)
	}
	return out
}
