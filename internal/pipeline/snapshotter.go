// Package pipeline contains the background jobs that run alongside the API:
// currently the periodic market view snapshotter.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xo-market/xobot/internal/domain"
)

// viewLister supplies the current market views for a snapshot.
type viewLister interface {
	ListMarkets(ctx context.Context) ([]domain.MarketView, error)
}

// Snapshotter periodically writes the full market view set to blob storage
// as JSON Lines, one object per pass, keyed by date and timestamp.
type Snapshotter struct {
	views    viewLister
	blob     domain.BlobWriter
	interval time.Duration
	logger   *slog.Logger
}

// NewSnapshotter creates a Snapshotter writing every interval.
func NewSnapshotter(views viewLister, blob domain.BlobWriter, interval time.Duration, logger *slog.Logger) *Snapshotter {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Snapshotter{
		views:    views,
		blob:     blob,
		interval: interval,
		logger:   logger,
	}
}

// Run writes snapshots until ctx is cancelled.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Snapshot(ctx); err != nil {
				s.logger.ErrorContext(ctx, "snapshotter: pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Snapshot writes one snapshot object. The object path encodes the UTC date
// so daily listings stay cheap:
//
//	snapshots/2026/09/01/views-1756684800.jsonl
func (s *Snapshotter) Snapshot(ctx context.Context) error {
	views, err := s.views.ListMarkets(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: list views: %w", err)
	}
	if len(views) == 0 {
		s.logger.DebugContext(ctx, "snapshotter: nothing to snapshot")
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, view := range views {
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("pipeline: encode view %d: %w", view.MarketID, err)
		}
	}

	now := time.Now().UTC()
	path := fmt.Sprintf("snapshots/%04d/%02d/%02d/views-%d.jsonl",
		now.Year(), now.Month(), now.Day(), now.Unix())

	if err := s.blob.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("pipeline: upload snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "snapshotter: snapshot written",
		slog.String("path", path),
		slog.Int("markets", len(views)),
	)
	return nil
}
