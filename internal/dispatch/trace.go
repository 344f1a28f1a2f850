package dispatch

import (
	"time"

	"github.com/MaStr/pv-bat-simulator/internal/lp"
	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// Step is one hour of a dispatch trace, carried at full precision.
// This is the primary artifact for "what happened" in a computation.
type Step struct {
	Hour int
	Time time.Time // zero when the computation has no calendar day

	ConsumptionWh float64
	ProductionWh  float64

	GridWh       float64 // total grid draw, including GridChargeWh
	DischargeWh  float64
	ChargeWh     float64
	GridChargeWh float64
	ExportWh     float64 // curtailment / feed-in

	StoredWh float64 // at the end of the hour

	Price   float64 // €/kWh
	CostEUR float64

	Mode model.Mode
}

func (s Step) Action() model.Action {
	return model.ActionFromFlow(s.ChargeWh, s.DischargeWh)
}

// Trace is the full output of one engine run.
type Trace struct {
	Model      Model
	CapacityWh float64
	Steps      []Step
	// Status is the solver outcome for the optimizer; simulators leave it NotSolved.
	Status lp.Status
}

func newTrace(m Model, in Inputs) *Trace {
	return &Trace{
		Model:      m,
		CapacityWh: in.Battery.CapacityWh,
		Steps:      make([]Step, 0, model.Hours),
	}
}

func (t *Trace) record(hour int, in Inputs, f model.Flow, storedWh, price float64, mode model.Mode) {
	t.Steps = append(t.Steps, Step{
		Hour:          hour,
		Time:          in.hourTime(hour),
		ConsumptionWh: f.DemandWh,
		ProductionWh:  f.ProductionWh,
		GridWh:        f.GridWh,
		DischargeWh:   f.DischargeWh,
		ChargeWh:      f.ChargeWh,
		GridChargeWh:  f.GridChargeWh,
		ExportWh:      f.ExportWh,
		StoredWh:      storedWh,
		Price:         price,
		CostEUR:       model.CostEUR(f.GridWh, price),
		Mode:          mode,
	})
}

// TotalCost is the sum of the reported (4 dp) hourly costs, rounded to 2 dp.
func (t *Trace) TotalCost() float64 {
	return model.Round(t.costSum(), 2)
}

// TotalGridKWh is the sum of the reported (2 dp) hourly grid draws in kWh, rounded to 2 dp.
func (t *Trace) TotalGridKWh() float64 {
	return model.Round(t.gridSumKWh(), 2)
}

// WeightedPrice is total cost over total grid energy, 0 when nothing was drawn.
func (t *Trace) WeightedPrice() float64 {
	grid := t.gridSumKWh()
	if grid <= 0 {
		return 0
	}
	return model.Round(t.costSum()/grid, 4)
}

func (t *Trace) costSum() float64 {
	total := 0.0
	for _, s := range t.Steps {
		total += model.Round(s.CostEUR, 4)
	}
	return total
}

func (t *Trace) gridSumKWh() float64 {
	total := 0.0
	for _, s := range t.Steps {
		total += model.Round(s.GridWh, 2)
	}
	return model.WhToKWh(total)
}

// Report is the rounded view of a Trace: energies 2 dp, currency and prices 4 dp.
type Report struct {
	Model      Model
	Grid       []float64
	Discharge  []float64
	Cost       []float64
	Stored     []float64
	Prices     []float64
	Export     []float64
	GridCharge []float64
	Modes      []int

	TotalCost     float64
	TotalGridKWh  float64
	WeightedPrice float64
	Status        lp.Status
}

func (t *Trace) Report() Report {
	r := Report{
		Model:         t.Model,
		TotalCost:     t.TotalCost(),
		TotalGridKWh:  t.TotalGridKWh(),
		WeightedPrice: t.WeightedPrice(),
		Status:        t.Status,
	}
	n := len(t.Steps)
	r.Grid = make([]float64, n)
	r.Discharge = make([]float64, n)
	r.Cost = make([]float64, n)
	r.Stored = make([]float64, n)
	r.Prices = make([]float64, n)
	r.Export = make([]float64, n)
	r.GridCharge = make([]float64, n)
	r.Modes = make([]int, n)
	for i, s := range t.Steps {
		r.Grid[i] = model.Round(s.GridWh, 2)
		r.Discharge[i] = model.Round(s.DischargeWh, 2)
		r.Cost[i] = model.Round(s.CostEUR, 4)
		r.Stored[i] = model.Round(s.StoredWh, 2)
		r.Prices[i] = model.Round(s.Price, 4)
		r.Export[i] = model.Round(s.ExportWh, 2)
		r.GridCharge[i] = model.Round(s.GridChargeWh, 2)
		r.Modes[i] = int(s.Mode)
	}
	return r
}
