package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// Forecast is what a policy sees at one hour: the remaining horizon starting at
// the current hour (index 0) plus the battery state. Energies are Wh, prices €/kWh.
type Forecast struct {
	Production  []float64
	Consumption []float64
	// Prices maps hour offset (0 = current hour) to price.
	Prices   map[int]float64
	StoredWh float64
	UsableWh float64
	FreeWh   float64
}

// Len is the number of remaining hours.
func (f Forecast) Len() int { return len(f.Consumption) }

// PolicyParams configures a policy once per simulation.
type PolicyParams struct {
	// MaxChargingFromGridLimit is the SOC fraction up to which grid charging is permitted.
	MaxChargingFromGridLimit float64
	// MinPriceDifference (€/kWh) is the spread required before grid charging pays off.
	MinPriceDifference float64
	// AlwaysAllowDischargeLimit: above this SOC fraction discharging is always allowed.
	AlwaysAllowDischargeLimit float64
}

func (p PolicyParams) Validate() error {
	if p.MaxChargingFromGridLimit < 0 || p.MaxChargingFromGridLimit > 1 {
		return errors.New("max_charging_from_grid_limit must be in [0, 1]")
	}
	if p.AlwaysAllowDischargeLimit < 0 || p.AlwaysAllowDischargeLimit > 1 {
		return errors.New("always_allow_discharge_limit must be in [0, 1]")
	}
	if p.MinPriceDifference < 0 {
		return errors.New("min_price_difference must be >= 0")
	}
	return nil
}

// InverterSettings is a policy's directive for the current hour.
type InverterSettings struct {
	ChargeFromGrid bool
	ChargeRateW    float64 // only meaningful with ChargeFromGrid
	AllowDischarge bool
}

// Mode classifies the settings. Grid charging wins over the discharge flag.
func (s InverterSettings) Mode() model.Mode {
	switch {
	case s.ChargeFromGrid:
		return model.ModeChargeFromGrid
	case !s.AllowDischarge:
		return model.ModeAvoidDischarge
	default:
		return model.ModeDischargeAllowed
	}
}

// Policy decides charge/discharge behaviour hour by hour. A Policy instance
// belongs to one simulation; it may keep state between Decide calls.
type Policy interface {
	Name() string
	Configure(p PolicyParams) error
	Decide(ctx context.Context, f Forecast, now time.Time) (InverterSettings, error)
}

const DefaultPolicy = "price_gap"

var registry = map[string]func() Policy{
	"price_gap": func() Policy { return &PriceGapLogic{} },
	"schedule": func() Policy {
		p, err := NewSchedulePolicy(DefaultScheduleParams())
		if err != nil {
			panic(err)
		}
		return p
	},
}

// New returns a fresh policy by name. The empty name selects DefaultPolicy.
func New(name string) (Policy, error) {
	if name == "" {
		name = DefaultPolicy
	}
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered policies in stable order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
