// Package chain implements the on-chain interaction layer: connection
// resolution, contract binding, allowance management, transaction execution,
// and receipt event extraction against the XO market contracts.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/xo-market/xobot/internal/domain"
)

// Mode tags a Handle with its capability.
type Mode int

const (
	// ModeReadOnly handles can perform calls and reads only.
	ModeReadOnly Mode = iota
	// ModeSigner handles can additionally sign and send transactions.
	ModeSigner
)

// Backend is the subset of ethclient.Client the chain layer depends on.
// Narrowing the surface keeps the allowance guard and executor testable with
// a simulated backend.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Handle is an immutable connection to one chain. Handles are replaced
// wholesale when the observed chain changes, never mutated, so in-flight
// operations holding a superseded handle complete against a consistent
// snapshot.
type Handle struct {
	mode    Mode
	chainID *big.Int
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
}

// Mode returns whether the handle is read-only or signer-backed.
func (h *Handle) Mode() Mode { return h.mode }

// ChainID returns the chain the handle is connected to.
func (h *Handle) ChainID() *big.Int { return new(big.Int).Set(h.chainID) }

// From returns the signing address, or the zero address for read-only handles.
func (h *Handle) From() common.Address { return h.from }

// Backend returns the underlying RPC backend.
func (h *Handle) Backend() Backend { return h.backend }

// NewHandle builds a Handle directly from its parts. Production code goes
// through Resolver.Resolve; tests construct handles against simulated
// backends.
func NewHandle(mode Mode, chainID uint64, backend Backend, key *ecdsa.PrivateKey) *Handle {
	h := &Handle{
		mode:    mode,
		chainID: new(big.Int).SetUint64(chainID),
		backend: backend,
		key:     key,
	}
	if key != nil {
		h.from = ethcrypto.PubkeyToAddress(key.PublicKey)
	}
	return h
}

// Endpoint describes one configured chain.
type Endpoint struct {
	ChainID uint64
	RPCURL  string
}

// Resolver tracks the active chain and produces connection handles. With a
// wallet key it yields signer handles; without one it degrades to read-only.
type Resolver struct {
	mu        sync.RWMutex
	endpoints map[uint64]Endpoint
	key       *ecdsa.PrivateKey
	current   *Handle
	logger    *slog.Logger

	// dial is swapped out in tests to avoid real RPC connections.
	dial func(ctx context.Context, rawurl string) (Backend, error)
}

// NewResolver creates a Resolver over the given endpoint table. privateKeyHex
// may be empty, in which case every resolved handle is read-only.
func NewResolver(endpoints []Endpoint, privateKeyHex string, logger *slog.Logger) (*Resolver, error) {
	byID := make(map[uint64]Endpoint, len(endpoints))
	for _, ep := range endpoints {
		byID[ep.ChainID] = ep
	}

	r := &Resolver{
		endpoints: byID,
		logger:    logger.With(slog.String("component", "chain_resolver")),
		dial: func(ctx context.Context, rawurl string) (Backend, error) {
			return ethclient.DialContext(ctx, rawurl)
		},
	}

	if privateKeyHex != "" {
		key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("chain: invalid private key: %w", err)
		}
		r.key = key
	}

	return r, nil
}

// Resolve returns a connection handle for the given chain. The handle is
// signer-backed when the resolver holds a wallet key, read-only otherwise.
// A cached handle is reused while the chain id is unchanged; a chain switch
// replaces it wholesale. Unconfigured chains fail soft with
// domain.ErrChainNotConfigured.
func (r *Resolver) Resolve(ctx context.Context, chainID uint64) (*Handle, error) {
	r.mu.RLock()
	if h := r.current; h != nil && h.chainID.Uint64() == chainID {
		r.mu.RUnlock()
		return h, nil
	}
	r.mu.RUnlock()

	ep, ok := r.endpoints[chainID]
	if !ok {
		return nil, fmt.Errorf("chain: %w: chain %d", domain.ErrChainNotConfigured, chainID)
	}

	backend, err := r.dial(ctx, ep.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", ep.RPCURL, err)
	}

	mode := ModeReadOnly
	if r.key != nil {
		mode = ModeSigner
	}
	h := NewHandle(mode, chainID, backend, r.key)

	r.mu.Lock()
	r.current = h
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "resolved chain handle",
		slog.Uint64("chain_id", chainID),
		slog.Bool("signer", mode == ModeSigner),
	)
	return h, nil
}

// SetDialFunc replaces the RPC dial function. Tests use it to hand out
// in-memory backends instead of opening real connections.
func (r *Resolver) SetDialFunc(dial func(ctx context.Context, rawurl string) (Backend, error)) {
	r.mu.Lock()
	r.dial = dial
	r.mu.Unlock()
}

// SignerAddress returns the wallet address and true when a key is loaded.
func (r *Resolver) SignerAddress() (common.Address, bool) {
	if r.key == nil {
		return common.Address{}, false
	}
	return ethcrypto.PubkeyToAddress(r.key.PublicKey), true
}
