package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/xo-market/xobot/internal/domain"
)

// BoundContract couples a deployed address, its ABI, and a connection handle.
// The same type serves both read-only and signer handles; Transact enforces
// the capability at call time.
type BoundContract struct {
	addr   common.Address
	abi    abi.ABI
	handle *Handle
}

// Bind creates a BoundContract for addr against the given handle.
func Bind(addr common.Address, contractABI abi.ABI, handle *Handle) *BoundContract {
	return &BoundContract{addr: addr, abi: contractABI, handle: handle}
}

// Address returns the deployed contract address.
func (c *BoundContract) Address() common.Address { return c.addr }

// ABI returns the contract's parsed interface.
func (c *BoundContract) ABI() abi.ABI { return c.abi }

// Handle returns the connection handle the contract is bound to.
func (c *BoundContract) Handle() *Handle { return c.handle }

// Call performs a read-only eth_call of method and returns the unpacked
// output values in declaration order. Works on both handle modes.
func (c *BoundContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	out, err := c.handle.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.addr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return values, nil
}

// Transact signs and broadcasts a state-changing call of method. It populates
// the nonce, gas price, and gas limit from the backend, signs with the
// handle's key, and returns the submitted transaction without waiting for
// confirmation. Read-only handles are rejected with domain.ErrNoSigner before
// any network round-trip.
func (c *BoundContract) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if c.handle.mode != ModeSigner || c.handle.key == nil {
		return nil, fmt.Errorf("chain: transact %s: %w", method, domain.ErrNoSigner)
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	backend := c.handle.backend

	nonce, err := backend.PendingNonceAt(ctx, c.handle.from)
	if err != nil {
		return nil, fmt.Errorf("chain: nonce for %s: %w", c.handle.from.Hex(), err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: gas price: %w", err)
	}

	gasLimit, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From: c.handle.from,
		To:   &c.addr,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: estimate gas for %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.addr,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.handle.chainID), c.handle.key)
	if err != nil {
		return nil, fmt.Errorf("chain: sign %s: %w", method, err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("chain: send %s: %w", method, err)
	}

	return signed, nil
}

// ContractKey identifies a deployed contract in the per-chain address table.
type ContractKey string

const (
	ContractCollateralToken    ContractKey = "collateral_token"
	ContractMultiOutcomeMarket ContractKey = "multi_outcome_market"
)

// Gateway resolves contract handles from a static per-chain address table.
type Gateway struct {
	addresses map[uint64]map[ContractKey]common.Address
}

// NewGateway builds a Gateway from the address table. The outer key is the
// chain id; missing chains yield soft failures from Contract.
func NewGateway(addresses map[uint64]map[ContractKey]common.Address) *Gateway {
	return &Gateway{addresses: addresses}
}

// Contract binds the contract identified by key on the handle's chain.
// The second return is false when the chain or the contract is not in the
// address table; callers treat that as a soft failure and abort the operation
// without raising an error.
func (g *Gateway) Contract(key ContractKey, handle *Handle) (*BoundContract, bool) {
	byKey, ok := g.addresses[handle.chainID.Uint64()]
	if !ok {
		return nil, false
	}
	addr, ok := byKey[key]
	if !ok || addr == (common.Address{}) {
		return nil, false
	}

	switch key {
	case ContractCollateralToken:
		return Bind(addr, CollateralTokenABI, handle), true
	case ContractMultiOutcomeMarket:
		return Bind(addr, MultiOutcomeMarketABI, handle), true
	default:
		return nil, false
	}
}

// Address looks up a raw contract address without binding it.
func (g *Gateway) Address(chainID uint64, key ContractKey) (common.Address, bool) {
	byKey, ok := g.addresses[chainID]
	if !ok {
		return common.Address{}, false
	}
	addr, ok := byKey[key]
	return addr, ok && addr != (common.Address{})
}
