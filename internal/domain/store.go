package domain

import (
	"context"
	"io"
	"time"
)

// ScheduleStore persists pending off-chain scheduling work for markets whose
// creation transaction confirmed but whose scheduling call failed.
type ScheduleStore interface {
	// Insert records a pending schedule. Inserting an id that already exists
	// overwrites the payload and resets the attempt counter.
	Insert(ctx context.Context, p PendingSchedule) error
	// ListDue returns records whose NextAttemptAt is at or before now, oldest
	// first, up to limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]PendingSchedule, error)
	// MarkAttempt bumps the attempt counter, records the error, and pushes
	// NextAttemptAt forward by backoff.
	MarkAttempt(ctx context.Context, marketID uint64, attemptErr string, backoff time.Duration) error
	// Delete removes a record once its schedule call has succeeded.
	Delete(ctx context.Context, marketID uint64) error
}

// ViewCache caches aggregated MarketViews between sync passes.
type ViewCache interface {
	Set(ctx context.Context, view MarketView) error
	Get(ctx context.Context, marketID uint64) (MarketView, error)
	SetAll(ctx context.Context, views []MarketView) error
	GetAll(ctx context.Context) ([]MarketView, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Broadcaster pushes a payload to all connected UI clients on a named
// channel. Delivery is best effort.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}
