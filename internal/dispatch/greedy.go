package dispatch

import "github.com/MaStr/pv-bat-simulator/internal/model"

// PriceSource yields the price (€/kWh) paid for grid energy in a given hour.
type PriceSource interface {
	PriceAt(hour int) float64
}

// FlatPrice is one tariff for the whole day.
type FlatPrice float64

func (p FlatPrice) PriceAt(int) float64 { return float64(p) }

// PriceSeries is an hourly tariff. It must hold model.Hours values.
type PriceSeries model.Series

func (p PriceSeries) PriceAt(hour int) float64 { return p[hour] }

// RunGreedy is the myopic self-consumption simulation: every hour production serves
// demand first, surplus charges the battery and shortfalls drain it before the grid
// is used. It assumes validated inputs and always yields model.Hours steps.
func (e *Engine) RunGreedy(m Model, in Inputs, prices PriceSource) *Trace {
	trace := newTrace(m, in)
	state := model.NewBatteryState(in.Battery)

	for hour := 0; hour < model.Hours; hour++ {
		f := model.Balance(in.Consumption[hour], in.Production[hour], &state, in.Battery)
		trace.record(hour, in, f, state.StoredWh, prices.PriceAt(hour), model.ModeDischargeAllowed)
	}
	return trace
}
