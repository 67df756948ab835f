package service

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/platform/indexer"
)

func marketListServer(t *testing.T, markets []domain.IndexedMarket) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /market/all", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"markets": markets})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListMarketsMergesPricesAndIsolatesFailures(t *testing.T) {
	srv := marketListServer(t, []domain.IndexedMarket{
		{MarketID: 1, Name: "one"},
		{MarketID: 1, Name: "one again"}, // duplicate, dropped
		{MarketID: 2, Name: "two"},      // price read fails
	})

	backend := &scriptedBackend{prices: map[uint64]*big.Int{
		1: units("750000000000000000"),
	}}
	cache := newMemViewCache()
	agg := NewAggregator(indexer.New(srv.URL), testResolver(t, backend, false), testGateway(),
		cache, nil, testChainID, 20, time.Second, testLogger())

	views, err := agg.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.Equal(t, "one", views[0].Name)
	require.InDelta(t, 75, views[0].YesPercentage, 0.0001)
	require.InDelta(t, 25, views[0].NoPercentage, 0.0001)

	// The failed read degrades to 50/50 but still appears in the result.
	require.Equal(t, "two", views[1].Name)
	require.InDelta(t, 50, views[1].YesPercentage, 0.0001)

	// Only the priced view reaches the cache.
	require.Len(t, cache.all, 1)
	require.Equal(t, uint64(1), cache.all[0].MarketID)
}

func TestListMarketsPrefersCache(t *testing.T) {
	srv := marketListServer(t, nil)

	cache := newMemViewCache()
	require.NoError(t, cache.SetAll(context.Background(), []domain.MarketView{
		{IndexedMarket: domain.IndexedMarket{MarketID: 9, Name: "cached"}, YesPercentage: 60, NoPercentage: 40},
	}))

	agg := NewAggregator(indexer.New(srv.URL), testResolver(t, &scriptedBackend{}, false), testGateway(),
		cache, nil, testChainID, 20, time.Second, testLogger())

	views, err := agg.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "cached", views[0].Name)
}

func TestGetMarket(t *testing.T) {
	srv := marketListServer(t, []domain.IndexedMarket{
		{MarketID: 1, Name: "one"},
	})

	backend := &scriptedBackend{prices: map[uint64]*big.Int{
		1: units("600000000000000000"),
	}}
	cache := newMemViewCache()
	agg := NewAggregator(indexer.New(srv.URL), testResolver(t, backend, false), testGateway(),
		cache, nil, testChainID, 20, time.Second, testLogger())

	ctx := context.Background()
	view, err := agg.GetMarket(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, 60, view.YesPercentage, 0.0001)

	// The priced view was cached for the next read.
	cached, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "one", cached.Name)

	_, err = agg.GetMarket(ctx, 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
