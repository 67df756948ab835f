package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xo-market/xobot/internal/domain"
)

// UserReader defines what the user handler needs from the indexer client.
type UserReader interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	UserData(ctx context.Context, address string) (domain.UserData, error)
}

// UserHandler serves leaderboard and per-user endpoints.
type UserHandler struct {
	users  UserReader
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserReader, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// Leaderboard returns the ranked leaderboard.
// GET /api/leaderboard
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.Leaderboard(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// GetUser returns a user's activity and market participation.
// GET /api/users/{address}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	data, err := h.users.UserData(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get user failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch user data")
		return
	}

	writeJSON(w, http.StatusOK, data)
}
