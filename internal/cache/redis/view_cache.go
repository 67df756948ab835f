package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xo-market/xobot/internal/domain"
)

const viewTTL = 2 * time.Minute

// ViewCache implements domain.ViewCache using Redis with JSON-serialized
// MarketView values.
//
// Key schema:
//
//	view:{marketID} - JSON MarketView
//	view:all        - JSON array of every view from the latest sync pass
type ViewCache struct {
	rdb *redis.Client
}

// NewViewCache creates a ViewCache backed by the given Client.
func NewViewCache(c *Client) *ViewCache {
	return &ViewCache{rdb: c.Underlying()}
}

func viewKey(marketID uint64) string { return "view:" + strconv.FormatUint(marketID, 10) }

const viewAllKey = "view:all"

// Set stores one market view with the standard TTL.
func (vc *ViewCache) Set(ctx context.Context, view domain.MarketView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("redis: marshal view %d: %w", view.MarketID, err)
	}
	if err := vc.rdb.Set(ctx, viewKey(view.MarketID), data, viewTTL).Err(); err != nil {
		return fmt.Errorf("redis: set view %d: %w", view.MarketID, err)
	}
	return nil
}

// Get retrieves one market view. It returns domain.ErrNotFound when the key
// does not exist or has expired.
func (vc *ViewCache) Get(ctx context.Context, marketID uint64) (domain.MarketView, error) {
	data, err := vc.rdb.Get(ctx, viewKey(marketID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketView{}, domain.ErrNotFound
		}
		return domain.MarketView{}, fmt.Errorf("redis: get view %d: %w", marketID, err)
	}

	var view domain.MarketView
	if err := json.Unmarshal(data, &view); err != nil {
		return domain.MarketView{}, fmt.Errorf("redis: unmarshal view %d: %w", marketID, err)
	}
	return view, nil
}

// SetAll replaces the full view list and refreshes the per-market entries in
// one pipeline.
func (vc *ViewCache) SetAll(ctx context.Context, views []domain.MarketView) error {
	all, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("redis: marshal view list: %w", err)
	}

	pipe := vc.rdb.TxPipeline()
	pipe.Set(ctx, viewAllKey, all, viewTTL)
	for _, view := range views {
		data, err := json.Marshal(view)
		if err != nil {
			return fmt.Errorf("redis: marshal view %d: %w", view.MarketID, err)
		}
		pipe.Set(ctx, viewKey(view.MarketID), data, viewTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set view list: %w", err)
	}
	return nil
}

// GetAll retrieves the full view list from the latest sync pass. An expired
// or absent list returns domain.ErrNotFound.
func (vc *ViewCache) GetAll(ctx context.Context) ([]domain.MarketView, error) {
	data, err := vc.rdb.Get(ctx, viewAllKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get view list: %w", err)
	}

	var views []domain.MarketView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, fmt.Errorf("redis: unmarshal view list: %w", err)
	}
	return views, nil
}
