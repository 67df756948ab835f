package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xo-market/xobot/internal/domain"
)

// FaucetService defines what the faucet handler needs from the lifecycle
// layer.
type FaucetService interface {
	Faucet(ctx context.Context, recipient string) domain.OperationStatus
}

// FaucetHandler serves test-token faucet requests.
type FaucetHandler struct {
	faucet FaucetService
	logger *slog.Logger
}

// NewFaucetHandler creates a FaucetHandler.
func NewFaucetHandler(faucet FaucetService, logger *slog.Logger) *FaucetHandler {
	return &FaucetHandler{
		faucet: faucet,
		logger: logger,
	}
}

type faucetRequest struct {
	Recipient string `json:"recipient"`
}

// Drip requests test collateral for the given recipient.
// POST /api/faucet
func (h *FaucetHandler) Drip(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recipient != "" && !common.IsHexAddress(req.Recipient) {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}

	status := h.faucet.Faucet(r.Context(), req.Recipient)
	code := http.StatusOK
	if status.State == domain.OperationFailed {
		code = http.StatusBadGateway
	}

	h.logger.InfoContext(r.Context(), "handler: faucet drip",
		slog.String("recipient", req.Recipient),
		slog.String("state", string(status.State)),
	)
	writeJSON(w, code, status)
}
