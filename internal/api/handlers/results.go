package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/store"
)

// ResultsHandler serves stored computations.
type ResultsHandler struct {
	results ResultStore
}

func NewResultsHandler(results ResultStore) *ResultsHandler {
	return &ResultsHandler{results: results}
}

// ListResults handles GET /api/v1/results
func (h *ResultsHandler) ListResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.results.List(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("[Results] list failed")
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list results")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": list, "count": len(list)})
}

// GetResult handles GET /api/v1/results/:id
func (h *ResultsHandler) GetResult(c *gin.Context) {
	res, ok := h.load(c)
	if !ok {
		return
	}

	var request any
	if len(res.Request) > 0 {
		if err := json.Unmarshal(res.Request, &request); err != nil {
			log.Warn().Err(err).Str("id", res.ID).Msg("[Results] stored request is not valid JSON")
		}
	}
	c.JSON(http.StatusOK, models.StoredResultResponse{
		ID:        res.ID,
		CreatedAt: res.CreatedAt,
		Request:   request,
		Result:    models.NewComputeResponse(res.ID, res.Trace),
	})
}

// GetLedger handles GET /api/v1/results/:id/ledger.csv
func (h *ResultsHandler) GetLedger(c *gin.Context) {
	res, ok := h.load(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger-%s.csv"`, res.ID))
	c.Status(http.StatusOK)
	if err := dispatch.WriteLedger(c.Writer, res.Trace); err != nil {
		log.Error().Err(err).Str("id", res.ID).Msg("[Results] writing ledger failed")
	}
}

func (h *ResultsHandler) load(c *gin.Context) (*store.Result, bool) {
	id := c.Param("id")
	res, err := h.results.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("No result with id %q", id))
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("[Results] load failed")
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to load result")
		return nil, false
	}
	return res, true
}
