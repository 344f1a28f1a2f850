package strategy

import (
	"context"
	"math"
	"time"
)

// PriceGapLogic is the default rule-based policy.
//
// Discharging is allowed when the battery is above AlwaysAllowDischargeLimit, or
// when the usable energy exceeds what the pricier hours need before the price
// drops below the current one. Otherwise, if the current hour is at least
// MinPriceDifference cheaper than the peak of that window, the missing energy is
// bought now (up to MaxChargingFromGridLimit). In every other case the battery
// is held.
type PriceGapLogic struct {
	params PolicyParams
}

func (l *PriceGapLogic) Name() string { return "price_gap" }

func (l *PriceGapLogic) Configure(p PolicyParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.params = p
	return nil
}

func (l *PriceGapLogic) Decide(ctx context.Context, f Forecast, _ time.Time) (InverterSettings, error) {
	if err := ctx.Err(); err != nil {
		return InverterSettings{}, err
	}
	hold := InverterSettings{}
	capacity := f.StoredWh + f.FreeWh
	if capacity <= 0 || f.Len() == 0 {
		return hold, nil
	}
	if f.StoredWh/capacity >= l.params.AlwaysAllowDischargeLimit {
		return InverterSettings{AllowDischarge: true}, nil
	}

	current := f.Prices[0]
	end := windowEnd(f, current)

	reserved, surplus, peak := 0.0, 0.0, current
	for h := 0; h < end; h++ {
		net := f.Consumption[h] - f.Production[h]
		if net < 0 {
			surplus -= net
		}
		if h == 0 {
			continue
		}
		price := f.Prices[h]
		peak = math.Max(peak, price)
		if price > current && net > 0 {
			reserved += net
		}
	}

	if f.UsableWh > reserved {
		return InverterSettings{AllowDischarge: true}, nil
	}
	if peak-current < l.params.MinPriceDifference || peak <= current {
		return hold, nil
	}

	required := reserved - f.UsableWh - surplus
	ceiling := l.params.MaxChargingFromGridLimit*capacity - f.StoredWh
	amount := math.Min(required, ceiling)
	if amount <= 0 {
		return hold, nil
	}
	return InverterSettings{ChargeFromGrid: true, ChargeRateW: amount}, nil
}

// windowEnd returns the first hour offset whose price is below current, or the
// horizon length when prices never drop.
func windowEnd(f Forecast, current float64) int {
	for h := 1; h < f.Len(); h++ {
		if f.Prices[h] < current {
			return h
		}
	}
	return f.Len()
}
