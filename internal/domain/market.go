// Package domain defines the core types shared across the orchestrator:
// markets, aggregated views, operation outcomes, and the store/cache
// interfaces implemented by the infrastructure packages.
package domain

import (
	"math/big"
	"time"
)

// MarketStatus represents the lifecycle state of a market as reported by the
// MultiOutcomeMarket contract.
type MarketStatus uint8

const (
	MarketStatusPending MarketStatus = iota
	MarketStatusOpen
	MarketStatusResolving
	MarketStatusResolved
	MarketStatusDefaulted
)

// String returns the lowercase name used in JSON payloads and logs.
func (s MarketStatus) String() string {
	switch s {
	case MarketStatusPending:
		return "pending"
	case MarketStatusOpen:
		return "open"
	case MarketStatusResolving:
		return "resolving"
	case MarketStatusResolved:
		return "resolved"
	case MarketStatusDefaulted:
		return "defaulted"
	default:
		return "unknown"
	}
}

// Market is the on-chain record of a prediction market, decoded from the
// MultiOutcomeMarket contract's getMarket view.
type Market struct {
	ID               uint64
	Creator          string
	CollateralToken  string
	CollateralAmount *big.Int
	CreatorFeeBps    uint16
	OutcomeCount     uint8
	Status           MarketStatus
	Resolver         string
	CreatedAt        time.Time
	StartsAt         time.Time
	ExpiresAt        time.Time
	// ResolvedAt is nil until the market reaches MarketStatusResolved.
	ResolvedAt *time.Time
	// WinningOutcome is meaningful only when Status is MarketStatusResolved.
	WinningOutcome *uint8
	MetadataURI    string
}

// IndexedMarket is a market record as returned by the off-chain indexing API.
// It carries the social metadata the chain does not store.
type IndexedMarket struct {
	MarketID    uint64    `json:"market_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CastURL     string    `json:"cast_url"`
	Category    string    `json:"category"`
	Creator     string    `json:"creator"`
	Expiry      time.Time `json:"expiry"`
	Status      string    `json:"status"`
}

// MarketView is the denormalized projection served to callers: the indexed
// record merged with percentage-normalized on-chain pricing.
//
// Invariant: YesPercentage + NoPercentage == 100 whenever the underlying price
// pair has positive mass; both default to 50 when the pair sums to zero or the
// price read failed.
type MarketView struct {
	IndexedMarket
	YesPercentage float64 `json:"yesPercentage"`
	NoPercentage  float64 `json:"noPercentage"`
}

// MarketResolverInfo mirrors the contract's MarketResolver struct.
type MarketResolverInfo struct {
	Resolver         string
	IsPublicResolver bool
	FeeBps           uint16
}

// PricePoint is one sample of a market's price history chart.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Yes       float64   `json:"yes"`
	No        float64   `json:"no"`
}

// LeaderboardEntry is one row of the platform leaderboard, sorted by points
// descending.
type LeaderboardEntry struct {
	Address string  `json:"address"`
	Points  float64 `json:"points,string"`
	Rank    int     `json:"rank"`
}

// UserData bundles a user's activity and market participation history.
type UserData struct {
	Activity       []UserActivity  `json:"activity"`
	CurrentMarkets []IndexedMarket `json:"current_markets"`
	PastMarkets    []IndexedMarket `json:"past_markets"`
}

// UserActivity is one entry in a user's trade/redeem history.
type UserActivity struct {
	MarketID  uint64    `json:"market_id"`
	Action    string    `json:"action"`
	Outcome   uint8     `json:"outcome"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
