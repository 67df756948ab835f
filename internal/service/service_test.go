package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/xo-market/xobot/internal/chain"
	"github.com/xo-market/xobot/internal/domain"
)

const testChainID = uint64(99)

var (
	testTokenAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testMarketAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGateway() *chain.Gateway {
	return chain.NewGateway(map[uint64]map[chain.ContractKey]common.Address{
		testChainID: {
			chain.ContractCollateralToken:    testTokenAddr,
			chain.ContractMultiOutcomeMarket: testMarketAddr,
		},
	})
}

// testResolver builds a resolver that hands out handles backed by backend.
// With signer true the handles can submit transactions.
func testResolver(t *testing.T, backend chain.Backend, signer bool) *chain.Resolver {
	t.Helper()
	keyHex := ""
	if signer {
		key, err := ethcrypto.GenerateKey()
		require.NoError(t, err)
		keyHex = common.Bytes2Hex(ethcrypto.FromECDSA(key))
	}
	r, err := chain.NewResolver(
		[]chain.Endpoint{{ChainID: testChainID, RPCURL: "http://stub"}},
		keyHex, testLogger(),
	)
	require.NoError(t, err)
	r.SetDialFunc(func(context.Context, string) (chain.Backend, error) {
		return backend, nil
	})
	return r
}

// scriptedBackend answers getPrices per market id, reports a generous
// allowance, and confirms every submitted transaction with a receipt carrying
// a MarketCreated log.
type scriptedBackend struct {
	mu sync.Mutex
	// prices maps market id to its yes price; the no price is the
	// complement to 1e18. Ids not in the map fail the read.
	prices          map[uint64]*big.Int
	createdMarketID uint64
	sent            []*types.Transaction
}

func (b *scriptedBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To != nil && *msg.To == testTokenAddr {
		out, err := chain.CollateralTokenABI.Methods["allowance"].Outputs.Pack(units("1000000000000000000000"))
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	// getPrices(marketId): the id is the last word of the calldata.
	id := new(big.Int).SetBytes(msg.Data[len(msg.Data)-32:]).Uint64()
	b.mu.Lock()
	yes, ok := b.prices[id]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no price for market %d", id)
	}
	no := new(big.Int).Sub(units("1000000000000000000"), yes)
	return chain.MultiOutcomeMarketABI.Methods["getPrices"].Outputs.Pack(yes, no)
}

func (b *scriptedBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 1, nil
}

func (b *scriptedBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *scriptedBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 200_000, nil
}

func (b *scriptedBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	b.sent = append(b.sent, tx)
	b.mu.Unlock()
	return nil
}

func (b *scriptedBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	event := chain.MultiOutcomeMarketABI.Events["MarketCreated"]
	data, err := event.Inputs.NonIndexed().Pack(
		uint64(1700000000), uint64(1700086400),
		testTokenAddr, uint8(2), "ipfs://QmTest",
	)
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(1),
		TxHash:      hash,
		Logs: []*types.Log{{
			Address: testMarketAddr,
			Topics: []common.Hash{
				event.ID,
				common.BigToHash(new(big.Int).SetUint64(b.createdMarketID)),
				common.BytesToHash(common.LeftPadBytes(testTokenAddr.Bytes(), 32)),
			},
			Data: data,
		}},
	}, nil
}

// memScheduleStore is an in-memory domain.ScheduleStore.
type memScheduleStore struct {
	mu       sync.Mutex
	rows     map[uint64]domain.PendingSchedule
	attempts []string
	deleted  []uint64
}

func newMemScheduleStore() *memScheduleStore {
	return &memScheduleStore{rows: make(map[uint64]domain.PendingSchedule)}
}

func (s *memScheduleStore) Insert(_ context.Context, p domain.PendingSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.MarketID] = p
	return nil
}

func (s *memScheduleStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.PendingSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.PendingSchedule
	for _, p := range s.rows {
		if !p.NextAttemptAt.After(now) && len(due) < limit {
			due = append(due, p)
		}
	}
	return due, nil
}

func (s *memScheduleStore) MarkAttempt(_ context.Context, marketID uint64, attemptErr string, backoff time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[marketID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Attempts++
	p.LastError = attemptErr
	p.NextAttemptAt = time.Now().Add(backoff)
	s.rows[marketID] = p
	s.attempts = append(s.attempts, fmt.Sprintf("%d:%s", marketID, backoff))
	return nil
}

func (s *memScheduleStore) Delete(_ context.Context, marketID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, marketID)
	s.deleted = append(s.deleted, marketID)
	return nil
}

func (s *memScheduleStore) get(marketID uint64) (domain.PendingSchedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[marketID]
	return p, ok
}

// memViewCache is an in-memory domain.ViewCache.
type memViewCache struct {
	mu    sync.Mutex
	views map[uint64]domain.MarketView
	all   []domain.MarketView
}

func newMemViewCache() *memViewCache {
	return &memViewCache{views: make(map[uint64]domain.MarketView)}
}

func (c *memViewCache) Set(_ context.Context, view domain.MarketView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.MarketID] = view
	return nil
}

func (c *memViewCache) Get(_ context.Context, marketID uint64) (domain.MarketView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	view, ok := c.views[marketID]
	if !ok {
		return domain.MarketView{}, domain.ErrNotFound
	}
	return view, nil
}

func (c *memViewCache) SetAll(_ context.Context, views []domain.MarketView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = append([]domain.MarketView(nil), views...)
	for _, v := range views {
		c.views[v.MarketID] = v
	}
	return nil
}

func (c *memViewCache) GetAll(_ context.Context) ([]domain.MarketView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.all) == 0 {
		return nil, domain.ErrNotFound
	}
	return c.all, nil
}
