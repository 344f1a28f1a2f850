package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// Markets maps the supported bidding zones to their aWATTar API base URL.
var Markets = map[string]string{
	"de": "https://api.awattar.de",
	"at": "https://api.awattar.at",
}

const DefaultMarket = "de"

// AwattarClient fetches day-ahead spot prices from the aWATTar market data API.
type AwattarClient struct {
	Market  string
	BaseURL string
	Client  *http.Client
	// Cache is optional; a nil cache disables caching.
	Cache *PriceCache
}

// NewAwattarClient creates a client. If baseURL is empty, the market's public
// endpoint is used.
func NewAwattarClient(market, baseURL string, cache *PriceCache) *AwattarClient {
	if market == "" {
		market = DefaultMarket
	}
	if baseURL == "" {
		baseURL = Markets[market]
	}
	return &AwattarClient{
		Market:  market,
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		Cache: cache,
	}
}

// MarketError represents an error from the market data API.
type MarketError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *MarketError) Error() string {
	return e.Message
}

type marketDataResponse struct {
	Object string `json:"object"`
	Data   []struct {
		StartTimestamp int64   `json:"start_timestamp"`
		EndTimestamp   int64   `json:"end_timestamp"`
		MarketPrice    float64 `json:"marketprice"` // €/MWh
		Unit           string  `json:"unit"`
	} `json:"data"`
}

// DayAhead returns the 24 hourly prices (€/kWh) of the calendar day containing
// day, in day's location.
func (c *AwattarClient) DayAhead(ctx context.Context, day time.Time) (model.Series, error) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	key := CacheKey(c.Market, start)
	if cached, ok := c.Cache.Get(key); ok {
		log.Debug().Str("key", key).Msg("[Awattar] cache hit")
		return cached, nil
	}

	u, err := url.Parse(c.BaseURL + "/v1/marketdata")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	began := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(began)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("[Awattar] request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	log.Info().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Str("day", start.Format("2006-01-02")).
		Str("market", c.Market).
		Msg("[Awattar] response")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &MarketError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &MarketError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var result marketDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &MarketError{
			StatusCode: resp.StatusCode,
			Code:       "INVALID_RESPONSE",
			Message:    fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	sort.Slice(result.Data, func(i, j int) bool {
		return result.Data[i].StartTimestamp < result.Data[j].StartTimestamp
	})
	if len(result.Data) != model.Hours {
		return nil, &MarketError{
			StatusCode: resp.StatusCode,
			Code:       "INCOMPLETE_DAY",
			Message:    fmt.Sprintf("expected %d hourly prices for %s, got %d", model.Hours, start.Format("2006-01-02"), len(result.Data)),
		}
	}

	prices := make(model.Series, model.Hours)
	for i, it := range result.Data {
		prices[i] = it.MarketPrice / 1000
	}

	c.Cache.Set(key, prices)
	return prices, nil
}
