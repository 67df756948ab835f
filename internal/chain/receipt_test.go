package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// marketCreatedLog builds a MarketCreated log entry as the market contract
// would emit it: indexed marketId and creator in the topics, the rest packed
// into the data section.
func marketCreatedLog(t *testing.T, contract common.Address, marketID uint64, creator common.Address) *types.Log {
	t.Helper()
	event := MultiOutcomeMarketABI.Events["MarketCreated"]

	data, err := event.Inputs.NonIndexed().Pack(
		uint64(1700000000), uint64(1700086400),
		common.HexToAddress("0x0a"), uint8(2), "ipfs://QmTest",
	)
	require.NoError(t, err)

	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(new(big.Int).SetUint64(marketID)),
			common.BytesToHash(common.LeftPadBytes(creator.Bytes(), 32)),
		},
		Data: data,
	}
}

func TestExtractEventDecodesMarketCreated(t *testing.T) {
	contractAddr := common.HexToAddress("0x0b")
	creator := common.HexToAddress("0x0c")
	handle := NewHandle(ModeReadOnly, 99, &fakeBackend{}, nil)
	market := Bind(contractAddr, MultiOutcomeMarketABI, handle)

	receipt := &types.Receipt{Logs: []*types.Log{
		// A log from another contract in the same transaction is skipped.
		marketCreatedLog(t, common.HexToAddress("0xff"), 1, creator),
		marketCreatedLog(t, contractAddr, 42, creator),
	}}

	args, ok := ExtractEvent(receipt, market, "MarketCreated")
	require.True(t, ok)
	require.Equal(t, uint64(42), args["marketId"].(*big.Int).Uint64())
	require.Equal(t, creator, args["creator"].(common.Address))
	require.Equal(t, uint8(2), args["outcomeCount"].(uint8))
	require.Equal(t, "ipfs://QmTest", args["metadataURI"].(string))
}

func TestExtractEventAbsentIsNotAnError(t *testing.T) {
	handle := NewHandle(ModeReadOnly, 99, &fakeBackend{}, nil)
	market := Bind(common.HexToAddress("0x0b"), MultiOutcomeMarketABI, handle)

	args, ok := ExtractEvent(&types.Receipt{}, market, "MarketCreated")
	require.False(t, ok)
	require.Nil(t, args)
}

func TestExtractEventUnknownName(t *testing.T) {
	handle := NewHandle(ModeReadOnly, 99, &fakeBackend{}, nil)
	market := Bind(common.HexToAddress("0x0b"), MultiOutcomeMarketABI, handle)

	_, ok := ExtractEvent(&types.Receipt{}, market, "NoSuchEvent")
	require.False(t, ok)
}
