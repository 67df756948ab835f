package domain

import "time"

// OperationState enumerates the terminal states a lifecycle operation can
// report back to the caller.
type OperationState string

const (
	// OperationSucceeded means every step of the operation completed.
	OperationSucceeded OperationState = "succeeded"
	// OperationFailed means the operation produced no durable effect.
	OperationFailed OperationState = "failed"
	// OperationSkipped means the operation returned early without attempting
	// any network call (no signer, unconfigured chain).
	OperationSkipped OperationState = "skipped"
	// OperationPartial means the on-chain step succeeded but a follow-up
	// off-chain step did not; the pending work is queued for reconciliation.
	OperationPartial OperationState = "partial"
)

// OperationStatus is the user-facing outcome of a lifecycle operation. The
// lifecycle layer converts every failure into one of these; callers never see
// an unhandled error from a public operation.
type OperationStatus struct {
	OpID    string         `json:"op_id"`
	State   OperationState `json:"state"`
	Message string         `json:"message,omitempty"`
	TxHash  string         `json:"tx_hash,omitempty"`
}

// CreatedMarketEvent carries the fields extracted from a MarketCreated log
// entry of a confirmed creation transaction. Produced at most once per
// creation and consumed immediately to drive the follow-up scheduling call.
type CreatedMarketEvent struct {
	MarketID        uint64
	Creator         string
	StartsAt        time.Time
	ExpiresAt       time.Time
	CollateralToken string
	OutcomeCount    uint8
	MetadataURI     string
}

// PendingSchedule is a reconciliation record for a market that was created
// on-chain but whose off-chain scheduling call failed. The reconciler retries
// the off-chain step with the already-known market id; the on-chain market is
// never recreated.
type PendingSchedule struct {
	MarketID         uint64
	CastURL          string
	Expiry           time.Time
	SettlementFactor string
	TargetCount      int64
	Attempts         int
	LastError        string
	CreatedAt        time.Time
	NextAttemptAt    time.Time
}
