package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/xo-market/xobot/internal/domain"
)

const receiptPollInterval = 2 * time.Second

// Executor submits contract calls and awaits one confirmation. It makes
// exactly one on-chain attempt per invocation; transactions are never retried
// automatically because resubmission without nonce management is not
// idempotent. Retry is a caller decision.
type Executor struct {
	confirmTimeout time.Duration
	logger         *slog.Logger
}

// NewExecutor creates an Executor. confirmTimeout bounds the wait for a
// receipt; zero or negative falls back to 90 seconds.
func NewExecutor(confirmTimeout time.Duration, logger *slog.Logger) *Executor {
	if confirmTimeout <= 0 {
		confirmTimeout = 90 * time.Second
	}
	return &Executor{
		confirmTimeout: confirmTimeout,
		logger:         logger.With(slog.String("component", "tx_executor")),
	}
}

// SubmitAndConfirm submits method on the contract, waits for it to be mined,
// and returns the receipt. It fails with a *domain.TxRevertedError when the
// transaction was mined but reverted (reason decoded when the node exposes
// one) and with domain.ErrTxTimeout when no receipt appears within the
// configured bound; after a timeout the operation state is unknown and must
// be reconciled by re-querying chain state, not by resubmitting.
func (e *Executor) SubmitAndConfirm(ctx context.Context, contract *BoundContract, method string, args ...any) (*types.Receipt, error) {
	tx, err := contract.Transact(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "transaction submitted",
		slog.String("method", method),
		slog.String("tx_hash", tx.Hash().Hex()),
	)

	receipt, err := e.waitMined(ctx, contract, tx)
	if err != nil {
		return nil, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		reason := e.revertReason(ctx, contract, tx, receipt)
		return nil, &domain.TxRevertedError{TxHash: tx.Hash().Hex(), Reason: reason}
	}

	e.logger.InfoContext(ctx, "transaction confirmed",
		slog.String("method", method),
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}

// waitMined polls for the transaction receipt until it appears or the
// confirmation window closes.
func (e *Executor) waitMined(ctx context.Context, contract *BoundContract, tx *types.Transaction) (*types.Receipt, error) {
	deadline := time.NewTimer(e.confirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	backend := contract.Handle().Backend()
	for {
		receipt, err := backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			e.logger.WarnContext(ctx, "receipt poll failed",
				slog.String("tx_hash", tx.Hash().Hex()),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("chain: wait for %s: %w", tx.Hash().Hex(), ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("chain: %w: tx %s after %s",
				domain.ErrTxTimeout, tx.Hash().Hex(), e.confirmTimeout)
		case <-ticker.C:
		}
	}
}

// revertReason replays the transaction as a call at its mined block and
// decodes the Error(string) payload. Best effort: an empty string means the
// node did not surface a decodable reason.
func (e *Executor) revertReason(ctx context.Context, contract *BoundContract, tx *types.Transaction, receipt *types.Receipt) string {
	msg := ethereum.CallMsg{
		From:     contract.Handle().From(),
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	ret, err := contract.Handle().Backend().CallContract(ctx, msg, receipt.BlockNumber)
	if err != nil {
		// Some nodes return the revert data inside the error instead of the
		// return value; the error text is still useful to surface.
		return err.Error()
	}

	reason, err := abi.UnpackRevert(ret)
	if err != nil {
		return ""
	}
	return reason
}
