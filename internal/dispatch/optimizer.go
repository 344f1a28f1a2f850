package dispatch

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/lp"
	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// PriceGate permits grid charging only in hours priced more than Gap (€/kWh)
// below the day's peak.
type PriceGate struct {
	Gap float64
}

// Open reports, per hour, whether grid charging is permitted.
func (g PriceGate) Open(prices model.Series) []bool {
	peak := prices.Max()
	open := make([]bool, len(prices))
	for t, p := range prices {
		open[t] = p < peak-g.Gap
	}
	return open
}

// OptimizerVars holds the variable indices of the dispatch LP, one per hour.
type OptimizerVars struct {
	Grid    []int // kWh drawn from the grid, >= 0
	Batt    []int // kWh, positive discharges, negative charges
	SOC     []int // kWh stored at the end of the hour
	Curtail []int // kWh of production that can be neither used nor stored
}

// snapEps absorbs solver round-off around zero before results are reported.
const snapEps = 1e-9

// BuildOptimizerProblem formulates the cost-minimizing dispatch in kWh:
//
//	minimize   Σ grid[t]*price[t]
//	subject to consumption[t] = grid[t] + batt[t] + production[t] - curtail[t]
//	           soc[0] = initial - batt[0];  soc[t] = soc[t-1] - batt[t]
//	           curtail[t] <= (soc[t-1] - capacity) * maxCharge * -1   for t > 0 only
//	           gate closed: batt[t] >= 0 (no surplus) or batt[t] >= consumption[t]-production[t]
//
// Hour 0 has no curtailment bound; its curtailment is limited by the balance alone.
func BuildOptimizerProblem(in Inputs, prices model.Series, gate PriceGate) (*lp.Problem, OptimizerVars) {
	consumption := kwh(in.Consumption)
	production := kwh(in.Production)
	capacity := model.WhToKWh(in.Battery.CapacityWh)
	maxCharge := model.WhToKWh(in.Battery.MaxChargeW)
	maxDischarge := model.WhToKWh(in.Battery.MaxDischargeW)
	const minSOC = 0.0

	p := lp.NewProblem("battery_dispatch")
	v := OptimizerVars{
		Grid:    make([]int, model.Hours),
		Batt:    make([]int, model.Hours),
		SOC:     make([]int, model.Hours),
		Curtail: make([]int, model.Hours),
	}
	for t := 0; t < model.Hours; t++ {
		v.Grid[t] = p.AddVariable(fmt.Sprintf("grid_%02d", t), 0, math.Inf(1))
		v.Batt[t] = p.AddVariable(fmt.Sprintf("batt_%02d", t), -maxCharge, maxDischarge)
		v.SOC[t] = p.AddVariable(fmt.Sprintf("soc_%02d", t), minSOC, capacity)
		v.Curtail[t] = p.AddVariable(fmt.Sprintf("curtail_%02d", t), 0, math.Inf(1))
		p.SetObjective(v.Grid[t], prices[t])
	}

	open := gate.Open(prices)
	for t := 0; t < model.Hours; t++ {
		net := consumption[t] - production[t]
		p.AddConstraint(fmt.Sprintf("balance_%02d", t), lp.Equal, net,
			lp.T(v.Grid[t], 1), lp.T(v.Batt[t], 1), lp.T(v.Curtail[t], -1))

		if t > 0 {
			p.AddConstraint(fmt.Sprintf("curtail_bound_%02d", t), lp.LessEq, capacity*maxCharge,
				lp.T(v.Curtail[t], 1), lp.T(v.SOC[t-1], maxCharge))
		}

		if t == 0 {
			p.AddConstraint("soc_00", lp.Equal, in.Battery.InitialSOC*capacity,
				lp.T(v.SOC[0], 1), lp.T(v.Batt[0], 1))
		} else {
			p.AddConstraint(fmt.Sprintf("soc_%02d", t), lp.Equal, 0,
				lp.T(v.SOC[t], 1), lp.T(v.SOC[t-1], -1), lp.T(v.Batt[t], 1))
		}

		if !open[t] {
			floor := 0.0
			if net < 0 {
				floor = net
			}
			p.AddConstraint(fmt.Sprintf("gate_%02d", t), lp.GreaterEq, floor, lp.T(v.Batt[t], 1))
		}
	}
	return p, v
}

// RunOptimizer solves the dispatch LP with perfect foresight. A non-optimal solver
// outcome yields a trace carrying only the status, together with a *SolverStatusError.
func (e *Engine) RunOptimizer(ctx context.Context, in Inputs, prices model.Series, gate PriceGate) (*Trace, error) {
	prob, v := BuildOptimizerProblem(in, prices, gate)
	sol, err := e.solver.Solve(ctx, prob)
	if err != nil {
		return nil, fmt.Errorf("solve dispatch LP: %w", err)
	}

	trace := newTrace(ModelOptimizer, in)
	trace.Status = sol.Status
	if sol.Status != lp.Optimal {
		log.Warn().Stringer("status", sol.Status).Str("detail", sol.Detail).Msg("optimizer did not find an optimum")
		return trace, &SolverStatusError{Status: sol.Status, Detail: sol.Detail}
	}

	for t := 0; t < model.Hours; t++ {
		batt := snap(sol.Value(v.Batt[t]))
		f := model.Flow{
			DemandWh:     in.Consumption[t],
			ProductionWh: in.Production[t],
			GridWh:       model.KWhToWh(snap(sol.Value(v.Grid[t]))),
			DischargeWh:  model.KWhToWh(math.Max(batt, 0)),
			ChargeWh:     model.KWhToWh(math.Max(-batt, 0)),
			ExportWh:     model.KWhToWh(snap(sol.Value(v.Curtail[t]))),
		}
		stored := model.KWhToWh(snap(sol.Value(v.SOC[t])))
		trace.record(t, in, f, stored, prices[t], model.ModeDischargeAllowed)
	}
	return trace, nil
}

func kwh(s model.Series) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = model.WhToKWh(v)
	}
	return out
}

func snap(x float64) float64 {
	if math.Abs(x) < snapEps {
		return 0
	}
	return x
}
