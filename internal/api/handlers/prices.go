package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/analysis"
	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/data"
	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// DayAheadSource returns the 24 hourly prices of a day. *data.AwattarClient implements it.
type DayAheadSource interface {
	DayAhead(ctx context.Context, day time.Time) (model.Series, error)
}

// PricesHandler serves day-ahead market prices.
type PricesHandler struct {
	sources  map[string]DayAheadSource
	location *time.Location
}

// NewPricesHandler creates a handler for the given markets, keyed by market code.
func NewPricesHandler(sources map[string]DayAheadSource, loc *time.Location) *PricesHandler {
	if loc == nil {
		loc = time.Local
	}
	return &PricesHandler{sources: sources, location: loc}
}

// GetPrices handles GET /api/v1/prices?date=YYYY-MM-DD&market=de
func (h *PricesHandler) GetPrices(c *gin.Context) {
	var q models.PricesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if q.Market == "" {
		q.Market = data.DefaultMarket
	}
	src, ok := h.sources[q.Market]
	if !ok {
		abortWithError(c, http.StatusBadRequest, "UNKNOWN_MARKET", fmt.Sprintf("market %q is not configured", q.Market))
		return
	}

	day, err := time.ParseInLocation("2006-01-02", q.Date, h.location)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_DATE", "date must be in YYYY-MM-DD format")
		return
	}

	prices, err := src.DayAhead(c.Request.Context(), day)
	if err != nil {
		var merr *data.MarketError
		if errors.As(err, &merr) {
			status := http.StatusBadGateway
			if merr.StatusCode == http.StatusTooManyRequests {
				status = http.StatusTooManyRequests
			}
			c.AbortWithStatusJSON(status, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    merr.Code,
					Message: merr.Message,
					Details: map[string]interface{}{
						"status_code": merr.StatusCode,
						"retry_after": merr.RetryAfter,
					},
				},
			})
			return
		}
		log.Error().Err(err).Str("market", q.Market).Msg("[Prices] fetch failed")
		abortWithError(c, http.StatusBadGateway, "DATA_FETCH_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, models.PricesResponse{
		Date:   q.Date,
		Market: q.Market,
		Prices: prices,
		Stats:  analysis.PriceStats(prices),
	})
}
