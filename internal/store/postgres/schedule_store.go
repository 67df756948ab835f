package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xo-market/xobot/internal/domain"
)

// ScheduleStore implements domain.ScheduleStore using PostgreSQL.
type ScheduleStore struct {
	pool *pgxpool.Pool
}

// NewScheduleStore creates a ScheduleStore backed by the given pool.
func NewScheduleStore(pool *pgxpool.Pool) *ScheduleStore {
	return &ScheduleStore{pool: pool}
}

// Insert records a pending schedule. Re-inserting an existing market id
// overwrites the payload and resets the attempt counter.
func (s *ScheduleStore) Insert(ctx context.Context, p domain.PendingSchedule) error {
	const query = `
		INSERT INTO pending_schedules (
			market_id, cast_url, expiry, settlement_factor, target_count,
			attempts, last_error, created_at, next_attempt_at
		) VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
		ON CONFLICT (market_id) DO UPDATE SET
			cast_url          = EXCLUDED.cast_url,
			expiry            = EXCLUDED.expiry,
			settlement_factor = EXCLUDED.settlement_factor,
			target_count      = EXCLUDED.target_count,
			attempts          = 0,
			last_error        = EXCLUDED.last_error,
			next_attempt_at   = EXCLUDED.next_attempt_at`

	_, err := s.pool.Exec(ctx, query,
		p.MarketID, p.CastURL, p.Expiry, p.SettlementFactor, p.TargetCount,
		p.LastError, p.CreatedAt, p.NextAttemptAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert pending schedule %d: %w", p.MarketID, err)
	}
	return nil
}

// ListDue returns schedules whose next attempt is at or before now, oldest
// first.
func (s *ScheduleStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.PendingSchedule, error) {
	const query = `
		SELECT market_id, cast_url, expiry, settlement_factor, target_count,
		       attempts, last_error, created_at, next_attempt_at
		FROM pending_schedules
		WHERE next_attempt_at <= $1
		ORDER BY next_attempt_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list due schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingSchedule
	for rows.Next() {
		var p domain.PendingSchedule
		if err := rows.Scan(
			&p.MarketID, &p.CastURL, &p.Expiry, &p.SettlementFactor, &p.TargetCount,
			&p.Attempts, &p.LastError, &p.CreatedAt, &p.NextAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan pending schedule: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate pending schedules: %w", err)
	}
	return out, nil
}

// MarkAttempt bumps the attempt counter and pushes the next attempt forward.
func (s *ScheduleStore) MarkAttempt(ctx context.Context, marketID uint64, attemptErr string, backoff time.Duration) error {
	const query = `
		UPDATE pending_schedules SET
			attempts        = attempts + 1,
			last_error      = $2,
			next_attempt_at = NOW() + $3
		WHERE market_id = $1`

	tag, err := s.pool.Exec(ctx, query, marketID, attemptErr, backoff)
	if err != nil {
		return fmt.Errorf("postgres: mark schedule attempt %d: %w", marketID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark schedule attempt %d: %w", marketID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a reconciled or abandoned schedule.
func (s *ScheduleStore) Delete(ctx context.Context, marketID uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_schedules WHERE market_id = $1`, marketID)
	if err != nil {
		return fmt.Errorf("postgres: delete pending schedule %d: %w", marketID, err)
	}
	return nil
}
