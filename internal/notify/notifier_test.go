package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (s *recordingSender) Send(_ context.Context, _, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return io.ErrUnexpectedEOF
	}
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) Name() string { return "recording" }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEvent(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, []string{"operation_failed"}, discard())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, "market_created", "t", "dropped"))
	require.NoError(t, n.Notify(ctx, "operation_failed", "t", "delivered"))
	require.Equal(t, []string{"delivered"}, sender.messages)

	// NotifyAll bypasses the allowlist.
	require.NoError(t, n.NotifyAll(ctx, "t", "always"))
	require.Equal(t, []string{"delivered", "always"}, sender.messages)
}

func TestNotifyEmptyAllowlistDeliversEverything(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, nil, discard())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	require.Len(t, sender.messages, 1)
}

func TestFanoutContinuesPastFailingSender(t *testing.T) {
	bad := &recordingSender{fail: true}
	good := &recordingSender{}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.NotifyAll(context.Background(), "t", "m")
	require.Error(t, err)
	require.Equal(t, []string{"m"}, good.messages)
}

func TestFanoutTruncatesLongMessages(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, nil, discard())

	require.NoError(t, n.NotifyAll(context.Background(), "t", strings.Repeat("x", 5000)))
	require.Len(t, sender.messages[0], maxMessageLen+3)
}

func TestDiscordSenderPostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
	require.Equal(t, "**Title**\nbody", got["content"])
}

func TestDiscordSenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.ErrorContains(t, err, "status 400")
}
