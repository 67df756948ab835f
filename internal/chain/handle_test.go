package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/xo-market/xobot/internal/domain"
)

func TestResolveUnconfiguredChain(t *testing.T) {
	r, err := NewResolver([]Endpoint{{ChainID: 1, RPCURL: "http://one"}}, "", testLogger())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrChainNotConfigured)
}

func TestResolveReusesHandleUntilChainChanges(t *testing.T) {
	r, err := NewResolver([]Endpoint{
		{ChainID: 1, RPCURL: "http://one"},
		{ChainID: 2, RPCURL: "http://two"},
	}, "", testLogger())
	require.NoError(t, err)

	dials := 0
	r.SetDialFunc(func(context.Context, string) (Backend, error) {
		dials++
		return &fakeBackend{}, nil
	})

	ctx := context.Background()
	first, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	again, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Equal(t, 1, dials)

	// A chain switch replaces the handle wholesale.
	other, err := r.Resolve(ctx, 2)
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.Equal(t, uint64(2), other.ChainID().Uint64())
	require.Equal(t, 2, dials)
}

func TestResolveModeFollowsKey(t *testing.T) {
	endpoints := []Endpoint{{ChainID: 1, RPCURL: "http://one"}}

	readOnly, err := NewResolver(endpoints, "", testLogger())
	require.NoError(t, err)
	readOnly.SetDialFunc(func(context.Context, string) (Backend, error) {
		return &fakeBackend{}, nil
	})
	h, err := readOnly.Resolve(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, ModeReadOnly, h.Mode())
	require.Equal(t, common.Address{}, h.From())
	_, ok := readOnly.SignerAddress()
	require.False(t, ok)

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	keyHex := common.Bytes2Hex(ethcrypto.FromECDSA(key))

	signer, err := NewResolver(endpoints, "0x"+keyHex, testLogger())
	require.NoError(t, err)
	signer.SetDialFunc(func(context.Context, string) (Backend, error) {
		return &fakeBackend{}, nil
	})
	h, err = signer.Resolve(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, ModeSigner, h.Mode())
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey), h.From())

	addr, ok := signer.SignerAddress()
	require.True(t, ok)
	require.Equal(t, h.From(), addr)
}

func TestNewResolverRejectsBadKey(t *testing.T) {
	_, err := NewResolver([]Endpoint{{ChainID: 1, RPCURL: "http://one"}}, "nothex", testLogger())
	require.Error(t, err)
}
