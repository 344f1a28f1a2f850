package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/lp"
	"github.com/MaStr/pv-bat-simulator/internal/model"
	"github.com/MaStr/pv-bat-simulator/internal/strategy"
)

var (
	consumption = model.Series{300, 250, 200, 180, 200, 350, 500, 600, 400, 350, 300, 350, 400, 350, 300, 400, 600, 800, 900, 700, 600, 500, 400, 350}
	production  = model.Series{0, 0, 0, 0, 0, 50, 200, 400, 600, 800, 900, 950, 900, 800, 600, 400, 200, 50, 0, 0, 0, 0, 0, 0}
	prices      = model.Series{0.30, 0.28, 0.26, 0.25, 0.24, 0.23, 0.25, 0.28, 0.30, 0.32, 0.30, 0.28, 0.26, 0.24, 0.22, 0.20, 0.22, 0.25, 0.28, 0.30, 0.32, 0.31, 0.29, 0.28}
)

func compareRequest() dispatch.Request {
	return dispatch.Request{
		Inputs: dispatch.Inputs{
			Consumption: consumption,
			Production:  production,
			Battery:     model.BatteryParams{CapacityWh: 10000, MaxChargeW: 3000, MaxDischargeW: 3000},
			Start:       time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		},
		FlatPrice:    0.30,
		HasFlatPrice: true,
		PriceGap:     0.05,
		Prices:       prices,
		Policy: strategy.PolicyParams{
			MaxChargingFromGridLimit:  0.8,
			MinPriceDifference:        0.05,
			AlwaysAllowDischargeLimit: 0.9,
		},
	}
}

func TestApplicable(t *testing.T) {
	req := compareRequest()
	assert.Equal(t, dispatch.AllModels, Applicable(req))

	req.Prices = nil
	assert.Equal(t, []dispatch.Model{dispatch.ModelFlatPrice}, Applicable(req))

	req = compareRequest()
	req.FlatPrice = 0
	assert.Equal(t, dispatch.AllModels, Applicable(req))

	req.HasFlatPrice = false
	assert.Equal(t, []dispatch.Model{dispatch.ModelDynamicPrice, dispatch.ModelOptimizer, dispatch.ModelModes}, Applicable(req))
}

func TestCompare_ZeroFlatPrice(t *testing.T) {
	req := compareRequest()
	req.FlatPrice = 0
	req.Prices = nil

	cmp, err := Compare(context.Background(), dispatch.New(), req)
	require.NoError(t, err)
	require.Len(t, cmp.Outcomes, 1)
	assert.Equal(t, dispatch.ModelFlatPrice, cmp.Outcomes[0].Model)
	assert.Zero(t, cmp.Outcomes[0].Trace.TotalCost())

	req.Prices = prices
	cmp, err = Compare(context.Background(), dispatch.New(), req)
	require.NoError(t, err)
	require.Len(t, cmp.Outcomes, 4)
	// A free tariff is the cheapest possible day.
	assert.Equal(t, dispatch.ModelFlatPrice, cmp.Outcomes[0].Model)
}

func TestCompare_AllModels(t *testing.T) {
	cmp, err := Compare(context.Background(), dispatch.New(), compareRequest())
	require.NoError(t, err)
	require.Len(t, cmp.Outcomes, 4)

	costs := map[dispatch.Model]float64{}
	for i, o := range cmp.Outcomes {
		require.False(t, o.Failed(), o.Model.String())
		require.Len(t, o.Trace.Steps, model.Hours)
		costs[o.Model] = o.Trace.TotalCost()
		if i > 0 {
			assert.LessOrEqual(t, cmp.Outcomes[i-1].Trace.TotalCost(), o.Trace.TotalCost())
		}
	}
	assert.LessOrEqual(t, costs[dispatch.ModelOptimizer], costs[dispatch.ModelDynamicPrice]+1e-3)

	best, ok := cmp.Best()
	require.True(t, ok)
	assert.Equal(t, cmp.Outcomes[0].Model, best.Model)

	require.NotNil(t, cmp.Prices)
	assert.Equal(t, 0.32, cmp.Prices.Max)
}

func TestCompare_FlatOnly(t *testing.T) {
	req := compareRequest()
	req.Prices = nil

	cmp, err := Compare(context.Background(), dispatch.New(), req)
	require.NoError(t, err)
	require.Len(t, cmp.Outcomes, 1)
	assert.Equal(t, dispatch.ModelFlatPrice, cmp.Outcomes[0].Model)
	assert.Nil(t, cmp.Prices)
}

func TestCompare_SolverFailureRanksLast(t *testing.T) {
	req := compareRequest()
	pv := model.Constant(0)
	pv[1] = 5000
	req.Consumption = model.Constant(0)
	req.Production = pv
	req.Battery = model.BatteryParams{CapacityWh: 1000, MaxChargeW: 2000, MaxDischargeW: 2000}

	cmp, err := Compare(context.Background(), dispatch.New(), req)
	require.NoError(t, err)
	require.Len(t, cmp.Outcomes, 4)

	last := cmp.Outcomes[3]
	assert.Equal(t, dispatch.ModelOptimizer, last.Model)
	require.True(t, last.Failed())
	var statusErr *dispatch.SolverStatusError
	require.True(t, errors.As(last.Err, &statusErr))
	assert.Equal(t, lp.Infeasible, statusErr.Status)
}

func TestCompare_Errors(t *testing.T) {
	req := compareRequest()
	req.HasFlatPrice = false
	req.Prices = nil
	_, err := Compare(context.Background(), dispatch.New(), req)
	assert.ErrorIs(t, err, ErrNothingToCompare)
	assert.ErrorIs(t, err, dispatch.ErrInvalidRequest)

	req = compareRequest()
	req.Battery.CapacityWh = -1
	_, err = Compare(context.Background(), dispatch.New(), req)
	assert.ErrorIs(t, err, dispatch.ErrInvalidRequest)
}

func TestRank(t *testing.T) {
	trace := func(m dispatch.Model, cost float64) *dispatch.Trace {
		return &dispatch.Trace{Model: m, Steps: []dispatch.Step{{CostEUR: cost}}}
	}
	outcomes := []Outcome{
		{Model: dispatch.ModelOptimizer, Err: errors.New("infeasible")},
		{Model: dispatch.ModelModes, Trace: trace(dispatch.ModelModes, 2)},
		{Model: dispatch.ModelDynamicPrice, Trace: trace(dispatch.ModelDynamicPrice, 2)},
		{Model: dispatch.ModelFlatPrice, Trace: trace(dispatch.ModelFlatPrice, 3)},
	}
	Rank(outcomes)

	var order []dispatch.Model
	for _, o := range outcomes {
		order = append(order, o.Model)
	}
	assert.Equal(t, []dispatch.Model{
		dispatch.ModelDynamicPrice,
		dispatch.ModelModes,
		dispatch.ModelFlatPrice,
		dispatch.ModelOptimizer,
	}, order)
}

func TestPriceStats(t *testing.T) {
	ramp := make(model.Series, model.Hours)
	for i := range ramp {
		ramp[i] = float64(i)
	}

	st := PriceStats(ramp)
	assert.Equal(t, 24, st.Count)
	assert.Equal(t, 0.0, st.Min)
	assert.Equal(t, 23.0, st.Max)
	assert.InDelta(t, 11.5, st.Mean, 1e-12)
	assert.InDelta(t, 1.15, st.P05, 1e-9)
	assert.InDelta(t, 21.85, st.P95, 1e-9)
	assert.InDelta(t, 20.7, st.SpreadP95P05, 1e-9)
	assert.Equal(t, 0, st.CheapestHour)
	assert.Equal(t, 23, st.PeakHour)
	assert.InDelta(t, 23, st.Arbitrage, 1e-9)

	assert.Equal(t, Stats{}, PriceStats(nil))
}

func TestArbitrageCanonical(t *testing.T) {
	assert.InDelta(t, 0.5, arbitrageCanonical(model.Series{0.1, 0.3, 0.1, 0.4}), 1e-12)
	assert.Zero(t, arbitrageCanonical(model.Series{0.4, 0.3, 0.2}))
	assert.Zero(t, arbitrageCanonical(model.Constant(0.3)))
}

func TestPercentileSorted(t *testing.T) {
	assert.Zero(t, percentileSorted(nil, 0.5))
	vals := []float64{1, 2, 3}
	assert.Equal(t, 1.0, percentileSorted(vals, 0))
	assert.Equal(t, 3.0, percentileSorted(vals, 1))
	assert.Equal(t, 2.0, percentileSorted(vals, 0.5))
}
