package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/analysis"
	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/store"
)

// ResultStore persists computations. *store.Repository implements it.
type ResultStore interface {
	Save(ctx context.Context, request any, tr *dispatch.Trace) (string, error)
	Get(ctx context.Context, id string) (*store.Result, error)
	List(ctx context.Context, limit int) ([]store.Summary, error)
}

// ComputeHandler runs the dispatch models.
type ComputeHandler struct {
	engine   *dispatch.Engine
	results  ResultStore // optional
	location *time.Location
}

// NewComputeHandler creates a handler. results may be nil, in which case
// computations are not stored and responses carry no id.
func NewComputeHandler(engine *dispatch.Engine, results ResultStore, loc *time.Location) *ComputeHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ComputeHandler{engine: engine, results: results, location: loc}
}

// Compute handles POST /api/v1/compute and the legacy POST /berechnen
func (h *ComputeHandler) Compute(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	tr, err := h.run(c.Request.Context(), req)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	id := h.save(c.Request.Context(), req, tr)
	c.JSON(http.StatusOK, models.NewComputeResponse(id, tr))
}

// Compare handles POST /api/v1/compare
func (h *ComputeHandler) Compare(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	dreq, err := req.ToCompare(h.location)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	cmp, err := analysis.Compare(c.Request.Context(), h.engine, dreq)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	resp := models.CompareResponse{
		Ranking: make([]models.CompareEntry, 0, len(cmp.Outcomes)),
		Prices:  cmp.Prices,
	}
	for i, o := range cmp.Outcomes {
		entry := models.CompareEntry{
			Rank:  i + 1,
			Model: int(o.Model),
			Name:  o.Model.String(),
		}
		if o.Failed() {
			_, detail := errorDetail(o.Err)
			entry.Error = &detail
			computations.WithLabelValues(o.Model.String(), "solver_status").Inc()
		} else {
			result := models.NewComputeResponse("", o.Trace)
			entry.Result = &result
			computations.WithLabelValues(o.Model.String(), "ok").Inc()
		}
		resp.Ranking = append(resp.Ranking, entry)
	}
	c.JSON(http.StatusOK, resp)
}

// run converts the request and executes the engine, recording metrics.
func (h *ComputeHandler) run(ctx context.Context, req models.ComputeRequest) (*dispatch.Trace, error) {
	dreq, err := req.ToDispatch(h.location)
	if err != nil {
		computations.WithLabelValues(req.ModelOrDefault().String(), "invalid").Inc()
		return nil, err
	}

	label := dreq.Model.String()
	start := time.Now()
	tr, err := h.engine.Run(ctx, dreq)
	computeSeconds.WithLabelValues(label).Observe(time.Since(start).Seconds())

	var statusErr *dispatch.SolverStatusError
	switch {
	case errors.As(err, &statusErr):
		computations.WithLabelValues(label, "solver_status").Inc()
		log.Warn().Str("model", label).Str("status", statusErr.Status.String()).Msg("[Compute] optimizer did not find an optimum")
		return nil, err
	case err != nil:
		computations.WithLabelValues(label, "invalid").Inc()
		return nil, err
	}

	computations.WithLabelValues(label, "ok").Inc()
	dailyCost.WithLabelValues(label).Observe(tr.TotalCost())
	log.Info().
		Str("model", label).
		Float64("total_cost", tr.TotalCost()).
		Float64("grid_kwh", tr.TotalGridKWh()).
		Dur("duration", time.Since(start)).
		Msg("[Compute] done")
	return tr, nil
}

// save stores the result and returns its id. A failing store does not fail the
// request; the response then carries no id.
func (h *ComputeHandler) save(ctx context.Context, req models.ComputeRequest, tr *dispatch.Trace) string {
	if h.results == nil {
		return ""
	}
	id, err := h.results.Save(ctx, req, tr)
	if err != nil {
		log.Error().Err(err).Msg("[Results] save failed")
		return ""
	}
	return id
}
