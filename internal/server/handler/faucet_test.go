package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xo-market/xobot/internal/domain"
)

type stubFaucet struct {
	state     domain.OperationState
	recipient string
}

func (s *stubFaucet) Faucet(_ context.Context, recipient string) domain.OperationStatus {
	s.recipient = recipient
	return domain.OperationStatus{OpID: "op", State: s.state}
}

func TestFaucetDrip(t *testing.T) {
	faucet := &stubFaucet{state: domain.OperationSucceeded}
	h := NewFaucetHandler(faucet, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/faucet",
		strings.NewReader(`{"recipient":"0x00000000000000000000000000000000000000aa"}`))
	h.Drip(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0x00000000000000000000000000000000000000aa", faucet.recipient)
}

func TestFaucetDripRejectsBadAddress(t *testing.T) {
	h := NewFaucetHandler(&stubFaucet{state: domain.OperationSucceeded}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/faucet", strings.NewReader(`{"recipient":"nothex"}`))
	h.Drip(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFaucetDripSurfacesFailure(t *testing.T) {
	h := NewFaucetHandler(&stubFaucet{state: domain.OperationFailed}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/faucet", strings.NewReader(`{}`))
	h.Drip(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
