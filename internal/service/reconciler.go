package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xo-market/xobot/internal/domain"
	"github.com/xo-market/xobot/internal/notify"
	"github.com/xo-market/xobot/internal/platform/indexer"
)

const (
	// reconcileBatch caps how many pending schedules one pass processes.
	reconcileBatch = 32
	// reconcileBackoffCap bounds the exponential retry backoff.
	reconcileBackoffCap = time.Hour
)

// Reconciler retries the off-chain scheduling call for markets whose creation
// transaction confirmed but whose schedule registration failed. Retries always
// reuse the market id recorded at creation time; the on-chain market is never
// recreated.
type Reconciler struct {
	schedules   domain.ScheduleStore
	indexer     *indexer.Client
	notifier    *notify.Notifier
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewReconciler creates a Reconciler polling the store every interval.
func NewReconciler(
	schedules domain.ScheduleStore,
	idx *indexer.Client,
	notifier *notify.Notifier,
	interval time.Duration,
	maxAttempts int,
	logger *slog.Logger,
) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Reconciler{
		schedules:   schedules,
		indexer:     idx,
		notifier:    notifier,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run processes due schedules until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce drains one batch of due schedules.
func (r *Reconciler) runOnce(ctx context.Context) {
	due, err := r.schedules.ListDue(ctx, time.Now(), reconcileBatch)
	if err != nil {
		r.logger.ErrorContext(ctx, "reconciler: list due failed",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, pending := range due {
		r.retry(ctx, pending)
	}
}

func (r *Reconciler) retry(ctx context.Context, pending domain.PendingSchedule) {
	err := r.indexer.Schedule(ctx, indexer.ScheduleRequest{
		MarketID:         pending.MarketID,
		CastURL:          pending.CastURL,
		Expiry:           pending.Expiry.UTC().Format(time.RFC1123),
		SettlementFactor: pending.SettlementFactor,
		Count:            pending.TargetCount,
	})
	if err == nil {
		if err := r.schedules.Delete(ctx, pending.MarketID); err != nil {
			r.logger.ErrorContext(ctx, "reconciler: delete reconciled schedule failed",
				slog.Uint64("market_id", pending.MarketID),
				slog.String("error", err.Error()),
			)
			return
		}
		r.logger.InfoContext(ctx, "reconciler: schedule recovered",
			slog.Uint64("market_id", pending.MarketID),
			slog.Int("attempts", pending.Attempts+1),
		)
		return
	}

	attempts := pending.Attempts + 1
	if attempts >= r.maxAttempts {
		// Out of retries. Hand the market to the operator and stop tracking;
		// the creation itself stands.
		r.logger.ErrorContext(ctx, "reconciler: giving up on schedule",
			slog.Uint64("market_id", pending.MarketID),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		if r.notifier != nil {
			msg := fmt.Sprintf("market %d could not be scheduled after %d attempts: %v",
				pending.MarketID, attempts, err)
			if nerr := r.notifier.Notify(ctx, EventSchedulePending, "Market scheduling abandoned", msg); nerr != nil {
				r.logger.WarnContext(ctx, "reconciler: notification failed",
					slog.String("error", nerr.Error()),
				)
			}
		}
		if derr := r.schedules.Delete(ctx, pending.MarketID); derr != nil {
			r.logger.ErrorContext(ctx, "reconciler: delete abandoned schedule failed",
				slog.Uint64("market_id", pending.MarketID),
				slog.String("error", derr.Error()),
			)
		}
		return
	}

	backoff := backoffFor(attempts)
	if merr := r.schedules.MarkAttempt(ctx, pending.MarketID, err.Error(), backoff); merr != nil {
		r.logger.ErrorContext(ctx, "reconciler: mark attempt failed",
			slog.Uint64("market_id", pending.MarketID),
			slog.String("error", merr.Error()),
		)
		return
	}
	r.logger.WarnContext(ctx, "reconciler: schedule retry failed",
		slog.Uint64("market_id", pending.MarketID),
		slog.Int("attempts", attempts),
		slog.Duration("backoff", backoff),
		slog.String("error", err.Error()),
	)
}

// backoffFor doubles the base delay per attempt, capped at an hour.
func backoffFor(attempts int) time.Duration {
	backoff := scheduleRetryDelay
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= reconcileBackoffCap {
			return reconcileBackoffCap
		}
	}
	return backoff
}
