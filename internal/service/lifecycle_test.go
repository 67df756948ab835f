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

	"github.com/xo-market/xobot/internal/chain"
	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/platform/indexer"
)

// castFlowServer serves every indexer endpoint the cast creation saga
// touches. scheduleStatus controls the final scheduling call.
func castFlowServer(t *testing.T, scheduleStatus int) (*httptest.Server, *int) {
	t.Helper()
	scheduleCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /market/farcaster/validate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(indexer.ValidateResponse{Valid: true})
	})
	mux.HandleFunc("GET /farcaster/cast", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(indexer.Cast{
			Text:   "will this cast go viral",
			Author: indexer.Author{FID: 7, Username: "alice"},
		})
	})
	mux.HandleFunc("POST /market/farcaster/create", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "ipfs_hash": "QmMeta"})
	})
	mux.HandleFunc("POST /market/farcaster/schedule", func(w http.ResponseWriter, r *http.Request) {
		scheduleCalls++
		w.WriteHeader(scheduleStatus)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &scheduleCalls
}

func testLifecycle(t *testing.T, baseURL string, backend chain.Backend, signer bool, store domain.ScheduleStore) *Lifecycle {
	t.Helper()
	exec := chain.NewExecutor(time.Second, testLogger())
	guard := chain.NewAllowanceGuard(exec, testLogger())
	return NewLifecycle(testResolver(t, backend, signer), testGateway(), exec, guard,
		indexer.New(baseURL), store, nil, testLogger())
}

func castParams() CreateFromCastParams {
	return CreateFromCastParams{
		ChainID:          testChainID,
		CastURL:          "https://warpcast.com/alice/0xabc",
		SettlementFactor: "likes",
		TargetCount:      100,
		Expiry:           time.Now().Add(24 * time.Hour),
		CollateralAmount: "1",
		CreatorFeeBps:    100,
	}
}

func TestCreateFromCastSucceeds(t *testing.T) {
	srv, scheduleCalls := castFlowServer(t, http.StatusOK)
	backend := &scriptedBackend{createdMarketID: 42}
	store := newMemScheduleStore()
	lc := testLifecycle(t, srv.URL, backend, true, store)

	status := lc.CreateFromCast(context.Background(), castParams())
	require.Equal(t, domain.OperationSucceeded, status.State)
	require.NotEmpty(t, status.TxHash)
	require.Equal(t, 1, *scheduleCalls)
	_, pending := store.get(42)
	require.False(t, pending)
}

func TestCreateFromCastPartialOnScheduleFailure(t *testing.T) {
	srv, _ := castFlowServer(t, http.StatusInternalServerError)
	backend := &scriptedBackend{createdMarketID: 42}
	store := newMemScheduleStore()
	lc := testLifecycle(t, srv.URL, backend, true, store)

	p := castParams()
	status := lc.CreateFromCast(context.Background(), p)
	require.Equal(t, domain.OperationPartial, status.State)
	require.NotEmpty(t, status.TxHash)

	// The market id from the receipt is queued for the reconciler; the
	// on-chain creation is never repeated.
	row, ok := store.get(42)
	require.True(t, ok)
	require.Equal(t, p.CastURL, row.CastURL)
	require.Equal(t, p.TargetCount, row.TargetCount)
	require.WithinDuration(t, time.Now().Add(time.Minute), row.NextAttemptAt, 5*time.Second)
}

func TestCreateFromCastRejectedCastFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /market/farcaster/validate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(indexer.ValidateResponse{Valid: false, Reason: "too old"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	backend := &scriptedBackend{createdMarketID: 42}
	lc := testLifecycle(t, srv.URL, backend, true, newMemScheduleStore())

	status := lc.CreateFromCast(context.Background(), castParams())
	require.Equal(t, domain.OperationFailed, status.State)
	require.Contains(t, status.Message, "too old")
	require.Empty(t, backend.sent)
}

func TestOperationsSkipWithoutChain(t *testing.T) {
	lc := testLifecycle(t, "http://stub", &scriptedBackend{}, true, nil)
	ctx := context.Background()

	for _, status := range []domain.OperationStatus{
		lc.CreateMarket(ctx, CreateMarketParams{}),
		lc.CreateFromCast(ctx, CreateFromCastParams{}),
		lc.Buy(ctx, TradeParams{Amount: "1"}),
		lc.Sell(ctx, TradeParams{Amount: "1"}),
		lc.Redeem(ctx, 0, 1),
	} {
		require.Equal(t, domain.OperationSkipped, status.State)
	}
}

func TestOperationsSkipReadOnly(t *testing.T) {
	lc := testLifecycle(t, "http://stub", &scriptedBackend{}, false, nil)

	status := lc.Buy(context.Background(), TradeParams{
		ChainID: testChainID, MarketID: 1, Outcome: 1, Amount: "1",
	})
	require.Equal(t, domain.OperationSkipped, status.State)
}

func TestOperationsSkipUnconfiguredChain(t *testing.T) {
	lc := testLifecycle(t, "http://stub", &scriptedBackend{}, true, nil)

	status := lc.Redeem(context.Background(), 777, 1)
	require.Equal(t, domain.OperationSkipped, status.State)
}

func TestBuyDefaultsLimitToAmount(t *testing.T) {
	backend := &scriptedBackend{}
	lc := testLifecycle(t, "http://stub", backend, true, nil)

	status := lc.Buy(context.Background(), TradeParams{
		ChainID: testChainID, MarketID: 5, Outcome: 1, Amount: "2",
	})
	require.Equal(t, domain.OperationSucceeded, status.State)
	require.Len(t, backend.sent, 1)

	buy := chain.MultiOutcomeMarketABI.Methods["buy"]
	data := backend.sent[0].Data()
	require.Equal(t, buy.ID, data[:4])
	args, err := buy.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, uint64(5), args[0].(*big.Int).Uint64())
	require.Equal(t, uint8(1), args[1].(uint8))
	require.Zero(t, args[2].(*big.Int).Cmp(units("2000000000000000000")))
	// maxCost defaults to the amount.
	require.Zero(t, args[3].(*big.Int).Cmp(units("2000000000000000000")))
}

func TestSellNeedsNoAllowance(t *testing.T) {
	backend := &scriptedBackend{}
	lc := testLifecycle(t, "http://stub", backend, true, nil)

	status := lc.Sell(context.Background(), TradeParams{
		ChainID: testChainID, MarketID: 5, Outcome: 0, Amount: "1",
	})
	require.Equal(t, domain.OperationSucceeded, status.State)
	require.Len(t, backend.sent, 1)

	sell := chain.MultiOutcomeMarketABI.Methods["sell"]
	require.Equal(t, sell.ID, backend.sent[0].Data()[:4])
	args, err := sell.Inputs.Unpack(backend.sent[0].Data()[4:])
	require.NoError(t, err)
	// minReturn defaults to zero.
	require.Zero(t, args[3].(*big.Int).Sign())
}
