package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xo-market/xobot/internal/domain"
)

// MarketReader defines what the market handler needs from the aggregator. It
// is declared locally so the handler package does not depend on the concrete
// service implementation.
type MarketReader interface {
	ListMarkets(ctx context.Context) ([]domain.MarketView, error)
	GetMarket(ctx context.Context, marketID uint64) (domain.MarketView, error)
	Chart(ctx context.Context, marketID uint64) ([]domain.PricePoint, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketReader
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given reader and logger.
func NewMarketHandler(markets MarketReader, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output.
type listMarketsResponse struct {
	Markets []domain.MarketView `json:"markets"`
	Total   int                 `json:"total"`
}

// ListMarkets returns the current market views.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	views, err := h.markets.ListMarkets(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to list markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: views,
		Total:   len(views),
	})
}

// GetMarket returns one market view.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	view, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetChart returns a market's price history.
// GET /api/markets/{id}/chart
func (h *MarketHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	points, err := h.markets.Chart(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get chart failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to get chart")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}
