// Package indexer is the REST client for the off-chain data service that
// indexes markets, computes the leaderboard, tracks user activity, stores
// market metadata, and schedules cast-backed settlement. The service is an
// external collaborator: any non-success response is surfaced as an error for
// the caller to convert into a user notification, never a crash.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xo-market/xobot/internal/domain"
)

// Client talks to the XO data service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an indexer Client. baseURL is the service root, e.g.
// "https://data.xo.market".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// ListMarkets returns up to limit indexed market records.
func (c *Client) ListMarkets(ctx context.Context, limit int) ([]domain.IndexedMarket, error) {
	if limit <= 0 {
		limit = 20
	}
	body, err := c.doGet(ctx, "/market/all?limit="+strconv.Itoa(limit))
	if err != nil {
		return nil, fmt.Errorf("indexer: list markets: %w", err)
	}

	var resp marketListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("indexer: decode markets: %w", err)
	}
	return resp.Markets, nil
}

// GetChart returns the price-history chart for a market.
func (c *Client) GetChart(ctx context.Context, marketID uint64) ([]domain.PricePoint, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("/market/price-chart/%d", marketID))
	if err != nil {
		return nil, fmt.Errorf("indexer: get chart %d: %w", marketID, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("indexer: decode chart %d: %w", marketID, err)
	}
	return resp.Data, nil
}

// Leaderboard returns all leaderboard entries sorted by points descending,
// with ranks assigned after sorting.
func (c *Client) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	body, err := c.doGet(ctx, "/user/leaderboard")
	if err != nil {
		return nil, fmt.Errorf("indexer: leaderboard: %w", err)
	}

	var resp dataEnvelope[[]domain.LeaderboardEntry]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("indexer: decode leaderboard: %w", err)
	}

	entries := resp.Data
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// UserData returns a user's activity and market participation. The address is
// lowercased before the request; the indexer keys users that way.
func (c *Client) UserData(ctx context.Context, address string) (domain.UserData, error) {
	addr := strings.ToLower(address)

	var data domain.UserData

	body, err := c.doGet(ctx, "/user/activity/"+url.PathEscape(addr))
	if err != nil {
		return domain.UserData{}, fmt.Errorf("indexer: user activity %s: %w", addr, err)
	}
	var activity dataEnvelope[[]domain.UserActivity]
	if err := json.Unmarshal(body, &activity); err != nil {
		return domain.UserData{}, fmt.Errorf("indexer: decode activity: %w", err)
	}
	data.Activity = activity.Data

	body, err = c.doGet(ctx, "/user/current-market/"+url.PathEscape(addr))
	if err != nil {
		return domain.UserData{}, fmt.Errorf("indexer: current markets %s: %w", addr, err)
	}
	var current dataEnvelope[[]domain.IndexedMarket]
	if err := json.Unmarshal(body, &current); err != nil {
		return domain.UserData{}, fmt.Errorf("indexer: decode current markets: %w", err)
	}
	data.CurrentMarkets = current.Data

	body, err = c.doGet(ctx, "/user/past-market/"+url.PathEscape(addr))
	if err != nil {
		return domain.UserData{}, fmt.Errorf("indexer: past markets %s: %w", addr, err)
	}
	var past dataEnvelope[[]domain.IndexedMarket]
	if err := json.Unmarshal(body, &past); err != nil {
		return domain.UserData{}, fmt.Errorf("indexer: decode past markets: %w", err)
	}
	data.PastMarkets = past.Data

	return data, nil
}

// GetCast fetches the Farcaster cast metadata for a cast URL.
func (c *Client) GetCast(ctx context.Context, castURL string) (Cast, error) {
	body, err := c.doGet(ctx, "/farcaster/cast?url="+url.QueryEscape(castURL))
	if err != nil {
		return Cast{}, fmt.Errorf("indexer: get cast: %w", err)
	}

	var cast Cast
	if err := json.Unmarshal(body, &cast); err != nil {
		return Cast{}, fmt.Errorf("indexer: decode cast: %w", err)
	}
	return cast, nil
}

// UploadMetadata stores a market metadata document and returns its content
// hash, used to build the on-chain metadata URI.
func (c *Client) UploadMetadata(ctx context.Context, meta MarketMetadata) (string, error) {
	body, err := c.doPost(ctx, "/market/farcaster/create", meta)
	if err != nil {
		return "", fmt.Errorf("indexer: upload metadata: %w", err)
	}

	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("indexer: decode upload response: %w", err)
	}
	if !resp.Success || resp.IPFSHash == "" {
		return "", fmt.Errorf("indexer: metadata upload rejected")
	}
	return resp.IPFSHash, nil
}

// GetMetadata fetches a previously uploaded metadata document by hash.
func (c *Client) GetMetadata(ctx context.Context, hash string) (MarketMetadata, error) {
	body, err := c.doGet(ctx, "/ipfs/get_ipfs/"+url.PathEscape(hash))
	if err != nil {
		return MarketMetadata{}, fmt.Errorf("indexer: get metadata %s: %w", hash, err)
	}

	var meta MarketMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return MarketMetadata{}, fmt.Errorf("indexer: decode metadata %s: %w", hash, err)
	}
	return meta, nil
}

// Schedule registers a created market for settlement tracking. This is the
// follow-up the creation saga must land after the on-chain transaction; a
// failure here leaves the market pending reconciliation.
func (c *Client) Schedule(ctx context.Context, req ScheduleRequest) error {
	if _, err := c.doPost(ctx, "/market/farcaster/schedule", req); err != nil {
		return fmt.Errorf("indexer: schedule market %d: %w", req.MarketID, err)
	}
	return nil
}

// Validate checks that a cast qualifies for a market.
func (c *Client) Validate(ctx context.Context, req ValidateRequest) (ValidateResponse, error) {
	body, err := c.doPost(ctx, "/market/farcaster/validate", req)
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("indexer: validate: %w", err)
	}

	var resp ValidateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ValidateResponse{}, fmt.Errorf("indexer: decode validation: %w", err)
	}
	return resp, nil
}

// Faucet requests test collateral for the recipient address.
func (c *Client) Faucet(ctx context.Context, recipient string) error {
	payload := map[string]string{"recipient": recipient}
	if _, err := c.doPost(ctx, "/faucet/token", payload); err != nil {
		return fmt.Errorf("indexer: faucet drip: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
