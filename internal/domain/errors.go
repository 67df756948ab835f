package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNoSigner           = errors.New("no signer available")
	ErrChainNotConfigured = errors.New("chain not configured")
	ErrAllowanceShort     = errors.New("allowance insufficient after approval")
	ErrTxTimeout          = errors.New("transaction confirmation timed out")
	ErrEventNotFound      = errors.New("event not found in receipt")
	ErrContextDone        = errors.New("context cancelled")
)

// TxRevertedError reports an on-chain rejection. Reason carries the decoded
// Error(string) revert message when the node exposed one, otherwise "".
type TxRevertedError struct {
	TxHash string
	Reason string
}

func (e *TxRevertedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted", e.TxHash)
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash, e.Reason)
}

// IsReverted reports whether err wraps a TxRevertedError.
func IsReverted(err error) bool {
	var re *TxRevertedError
	return errors.As(err, &re)
}
