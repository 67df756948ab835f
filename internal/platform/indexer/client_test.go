package indexer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xo-market/xobot/internal/domain"
)

func testServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestListMarkets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /market/all", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"markets": []domain.IndexedMarket{
			{MarketID: 1, Name: "one"},
			{MarketID: 2, Name: "two"},
		}})
	})
	c := testServer(t, mux)

	markets, err := c.ListMarkets(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	require.Equal(t, "one", markets[0].Name)
}

func TestLeaderboardSortsAndRanks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		// The service returns entries unsorted with points as strings.
		io.WriteString(w, `{"data":[
			{"address":"0x01","points":"10.5"},
			{"address":"0x02","points":"99"},
			{"address":"0x03","points":"42"}
		]}`)
	})
	c := testServer(t, mux)

	entries, err := c.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "0x02", entries[0].Address)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "0x03", entries[1].Address)
	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, "0x01", entries[2].Address)
	require.Equal(t, 3, entries[2].Rank)
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tc := range cases {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		c := testServer(t, mux)

		_, err := c.GetChart(context.Background(), 1)
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestUploadMetadataRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /market/farcaster/create", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	})
	c := testServer(t, mux)

	_, err := c.UploadMetadata(context.Background(), MarketMetadata{Name: "m"})
	require.Error(t, err)
}

func TestUserDataLowercasesAddress(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	record := func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path)
		io.WriteString(w, `{"data":[]}`)
	}
	mux.HandleFunc("GET /user/activity/", record)
	mux.HandleFunc("GET /user/current-market/", record)
	mux.HandleFunc("GET /user/past-market/", record)
	c := testServer(t, mux)

	_, err := c.UserData(context.Background(), "0xABCDEF")
	require.NoError(t, err)
	require.Equal(t, []string{
		"/user/activity/0xabcdef",
		"/user/current-market/0xabcdef",
		"/user/past-market/0xabcdef",
	}, seen)
}

func TestFaucetPostsRecipient(t *testing.T) {
	var got map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /faucet/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})
	c := testServer(t, mux)

	require.NoError(t, c.Faucet(context.Background(), "0x0123"))
	require.Equal(t, map[string]string{"recipient": "0x0123"}, got)
}
