package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/model"
	"github.com/MaStr/pv-bat-simulator/internal/strategy"
)

// RunModes simulates the day hour by hour, asking policy for each hour's directive
// and applying it through the balance primitives. The policy is configured once
// with params before the first hour.
func (e *Engine) RunModes(ctx context.Context, in Inputs, prices model.Series, policy strategy.Policy, params strategy.PolicyParams) (*Trace, error) {
	if policy == nil {
		return nil, fmt.Errorf("policy is nil")
	}
	if err := policy.Configure(params); err != nil {
		return nil, fmt.Errorf("configure policy %s: %w", policy.Name(), err)
	}
	if in.Start.IsZero() {
		in.Start = e.startOfDay()
	}

	trace := newTrace(ModelModes, in)
	state := model.NewBatteryState(in.Battery)

	for hour := 0; hour < model.Hours; hour++ {
		fc := forecastAt(hour, in, prices, state)
		settings, err := policy.Decide(ctx, fc, in.hourTime(hour))
		if err != nil {
			return nil, fmt.Errorf("hour %d: policy %s: %w", hour, policy.Name(), err)
		}

		mode := settings.Mode()
		demand, production := in.Consumption[hour], in.Production[hour]
		var f model.Flow
		switch mode {
		case model.ModeChargeFromGrid:
			f = model.BalanceGridCharge(demand, production, settings.ChargeRateW, params.MaxChargingFromGridLimit, &state, in.Battery)
		case model.ModeAvoidDischarge:
			f = model.BalanceNoDischarge(demand, production, &state, in.Battery)
		default:
			f = model.Balance(demand, production, &state, in.Battery)
		}

		log.Debug().
			Int("hour", hour).
			Stringer("mode", mode).
			Float64("charge_rate_w", settings.ChargeRateW).
			Float64("stored_wh", state.StoredWh).
			Msg("mode decision")
		trace.record(hour, in, f, state.StoredWh, prices[hour], mode)
	}
	return trace, nil
}

// forecastAt builds the policy input for the remaining hours [hour, 23].
func forecastAt(hour int, in Inputs, prices model.Series, state model.BatteryState) strategy.Forecast {
	remaining := model.Hours - hour
	fc := strategy.Forecast{
		Production:  append([]float64(nil), in.Production[hour:]...),
		Consumption: append([]float64(nil), in.Consumption[hour:]...),
		Prices:      make(map[int]float64, remaining),
		StoredWh:    state.StoredWh,
		UsableWh:    state.StoredWh,
		FreeWh:      state.FreeWh(in.Battery),
	}
	for i := 0; i < remaining; i++ {
		fc.Prices[i] = prices[hour+i]
	}
	return fc
}
