package tokenreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"geyser-mq-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wsolMint = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestLoader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{
			"name": "Solana Token List",
			"tokens": [
				{"address": "` + wsolMint + `", "symbol": "SOL"},
				{"address": "` + usdcMint + `", "symbol": "USDC"}
			]
		}`))
	}))
	defer srv.Close()

	l := NewLoader(nil, srv.URL, 0)
	set, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, set, 2)

	_, ok := set[types.PubkeyFromBase58(wsolMint)]
	assert.True(t, ok)
	_, ok = set[types.PubkeyFromBase58(usdcMint)]
	assert.True(t, ok)
}

func TestLoader_BadAddressIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokens": [{"address": "not-a-pubkey"}]}`))
	}))
	defer srv.Close()

	l := NewLoader(nil, srv.URL, 0)
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := NewLoader(nil, srv.URL, 0)
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokens": [`))
	}))
	defer srv.Close()

	l := NewLoader(nil, srv.URL, 0)
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}
