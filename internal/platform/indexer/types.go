package indexer

import (
	"time"

	"github.com/xo-market/xobot/internal/domain"
)

// marketListResponse wraps the /market/all payload.
type marketListResponse struct {
	Markets []domain.IndexedMarket `json:"markets"`
}

// dataEnvelope is the generic {"data": ...} wrapper most user endpoints use.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// chartResponse wraps the /market/price-chart payload.
type chartResponse struct {
	Data []domain.PricePoint `json:"data"`
}

// MarketMetadata is the NFT-style metadata document stored for a market.
type MarketMetadata struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Image           string              `json:"image"`
	Attributes      []MetadataAttribute `json:"attributes"`
	ExternalURL     string              `json:"external_url,omitempty"`
	AnimationURL    string              `json:"animation_url,omitempty"`
	BackgroundColor string              `json:"background_color,omitempty"`
}

// MetadataAttribute is one trait entry of a market metadata document.
type MetadataAttribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// uploadResponse wraps metadata/image upload results.
type uploadResponse struct {
	Success  bool   `json:"success"`
	IPFSHash string `json:"ipfs_hash"`
}

// ScheduleRequest registers a created market for automated settlement
// tracking against its source cast.
type ScheduleRequest struct {
	MarketID         uint64 `json:"market_id"`
	CastURL          string `json:"cast_url"`
	Expiry           string `json:"expiry"` // RFC 1123, UTC
	SettlementFactor string `json:"settlement_factor"`
	Count            int64  `json:"count"`
	WinningOutcome   string `json:"winning_outcome"`
}

// ValidateRequest asks the indexer to check that a cast qualifies for a
// market before anything is committed on-chain.
type ValidateRequest struct {
	CastURL          string `json:"cast_url"`
	SettlementFactor string `json:"settlement_factor"`
	Count            int64  `json:"count"`
}

// ValidateResponse carries the validation verdict.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Cast is the subset of Farcaster cast metadata the orchestrator needs to
// compose a market.
type Cast struct {
	Hash      string    `json:"hash"`
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	Author    Author    `json:"author"`
	Likes     int64     `json:"likes"`
	Recasts   int64     `json:"recasts"`
	Replies   int64     `json:"replies"`
	Timestamp time.Time `json:"timestamp"`
}

// Author identifies the cast's author.
type Author struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
