package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

func marketDataBody(start time.Time, n int) string {
	var b strings.Builder
	b.WriteString(`{"object":"list","data":[`)
	// Emit in reverse to check that entries are ordered by timestamp.
	for i := n - 1; i >= 0; i-- {
		from := start.Add(time.Duration(i) * time.Hour)
		fmt.Fprintf(&b, `{"start_timestamp":%d,"end_timestamp":%d,"marketprice":%.2f,"unit":"Eur/MWh"}`,
			from.UnixMilli(), from.Add(time.Hour).UnixMilli(), 100+float64(i)*10)
		if i > 0 {
			b.WriteString(",")
		}
	}
	b.WriteString(`],"url":"/de/v1/marketdata"}`)
	return b.String()
}

func TestAwattarClient_DayAhead(t *testing.T) {
	day := time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)
	midnight := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/marketdata", r.URL.Path)
		assert.Equal(t, fmt.Sprint(midnight.UnixMilli()), r.URL.Query().Get("start"))
		assert.Equal(t, fmt.Sprint(midnight.Add(24*time.Hour).UnixMilli()), r.URL.Query().Get("end"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, marketDataBody(midnight, 24))
	}))
	defer srv.Close()

	cache := NewPriceCache(time.Hour)
	c := NewAwattarClient("de", srv.URL, cache)

	prices, err := c.DayAhead(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, prices, model.Hours)
	assert.InDelta(t, 0.10, prices[0], 1e-12)
	assert.InDelta(t, 0.33, prices[23], 1e-12)

	// Second call is served from the cache.
	_, err = c.DayAhead(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestAwattarClient_Errors(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    string
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			code: "RATE_LIMIT_EXCEEDED",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			code: "API_ERROR",
		},
		{
			name: "garbage",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>")
			},
			code: "INVALID_RESPONSE",
		},
		{
			name: "incomplete day",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, marketDataBody(day, 12))
			},
			code: "INCOMPLETE_DAY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cache := NewPriceCache(time.Hour)
			_, err := NewAwattarClient("de", srv.URL, cache).DayAhead(context.Background(), day)
			require.Error(t, err)

			var merr *MarketError
			require.True(t, errors.As(err, &merr))
			assert.Equal(t, tt.code, merr.Code)
			assert.Zero(t, cache.Len())
		})
	}
}

func TestNewAwattarClient_Defaults(t *testing.T) {
	c := NewAwattarClient("", "", nil)
	assert.Equal(t, "de", c.Market)
	assert.Equal(t, "https://api.awattar.de", c.BaseURL)

	at := NewAwattarClient("at", "", nil)
	assert.Equal(t, "https://api.awattar.at", at.BaseURL)
}

func TestPriceCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewPriceCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("de:2024-01-01", model.Constant(0.2))
	got, ok := c.Get("de:2024-01-01")
	require.True(t, ok)
	assert.Equal(t, 0.2, got[5])

	// Callers cannot mutate the stored copy.
	got[5] = 99
	again, _ := c.Get("de:2024-01-01")
	assert.Equal(t, 0.2, again[5])

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("de:2024-01-01")
	assert.False(t, ok)
	assert.Equal(t, 1, c.evictExpired())
	assert.Zero(t, c.Len())
}

func TestPriceCache_Janitor(t *testing.T) {
	c := NewPriceCache(time.Millisecond)
	c.Set("k", model.Constant(1))
	c.StartJanitor(5 * time.Millisecond)
	defer c.Close()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	c.Close()
}

func TestPriceCache_NilIsDisabled(t *testing.T) {
	var c *PriceCache
	c.Set("k", model.Constant(1))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	c.Clear()

	assert.NotPanics(t, func() {
		c.StartJanitor(time.Millisecond)
		assert.Zero(t, c.evictExpired())
		c.Close()
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "at:2024-06-03", CacheKey("at", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))
}

func TestLoadSeriesFile(t *testing.T) {
	dir := t.TempDir()
	arr := filepath.Join(dir, "a.json")
	obj := filepath.Join(dir, "b.json")
	bad := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(arr, []byte(" [1, 2, 3]\n"), 0o644))
	require.NoError(t, os.WriteFile(obj, []byte(`{"unit":"Wh","values":[4,5]}`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"unit":"Wh"}`), 0o644))

	s, err := LoadSeriesFile(arr)
	require.NoError(t, err)
	assert.Equal(t, model.Series{1, 2, 3}, s)

	s, err = LoadSeriesFile(obj)
	require.NoError(t, err)
	assert.Equal(t, model.Series{4, 5}, s)

	_, err = LoadSeriesFile(bad)
	assert.Error(t, err)

	_, err = LoadSeriesFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestExampleSeries(t *testing.T) {
	require.NoError(t, model.ValidateSeries("consumption", ExampleConsumption))
	require.NoError(t, model.ValidateSeries("production", ExampleProduction))

	s, err := LoadSeriesFile(filepath.Join("..", "..", "examples", "series", "production.json"))
	require.NoError(t, err)
	assert.Equal(t, ExampleProduction, s)
}
