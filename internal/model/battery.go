package model

import (
	"errors"
	"math"
)

// BatteryParams defines the physical parameters of the home battery.
// Units:
// - CapacityWh: Wh
// - MaxChargeW / MaxDischargeW: W (one simulation step is one hour, so W == Wh per step)
// - InitialSOC: fraction 0..1 of CapacityWh present at hour 0
type BatteryParams struct {
	CapacityWh    float64
	MaxChargeW    float64
	MaxDischargeW float64
	InitialSOC    float64
}

func (p BatteryParams) Validate() error {
	if p.CapacityWh <= 0 {
		return errors.New("CapacityWh must be > 0")
	}
	if p.MaxChargeW <= 0 {
		return errors.New("MaxChargeW must be > 0")
	}
	if p.MaxDischargeW <= 0 {
		return errors.New("MaxDischargeW must be > 0")
	}
	if p.InitialSOC < 0 || p.InitialSOC > 1 {
		return errors.New("InitialSOC must be in [0, 1]")
	}
	return nil
}

// InitialEnergyWh is the stored energy at the start of hour 0.
func (p BatteryParams) InitialEnergyWh() float64 {
	return p.InitialSOC * p.CapacityWh
}

// BatteryState captures the mutable stored energy of one computation.
// It is carried at full precision; rounding happens only when reporting.
type BatteryState struct {
	StoredWh float64
}

// NewBatteryState returns the state at hour 0 for the given parameters.
func NewBatteryState(p BatteryParams) BatteryState {
	return BatteryState{StoredWh: p.InitialEnergyWh()}
}

// FreeWh is the remaining headroom before the battery is full.
func (s BatteryState) FreeWh(p BatteryParams) float64 {
	return math.Max(0, p.CapacityWh-s.StoredWh)
}

// SOC returns the stored energy as a fraction of capacity.
func (s BatteryState) SOC(p BatteryParams) float64 {
	if p.CapacityWh <= 0 {
		return 0
	}
	return s.StoredWh / p.CapacityWh
}

// Charge stores up to requestWh, limited by headroom and limitWh (the charge power
// still available this hour). It returns the energy actually stored.
func (s *BatteryState) Charge(p BatteryParams, requestWh, limitWh float64) float64 {
	e := math.Min(requestWh, math.Min(s.FreeWh(p), limitWh))
	if e <= 0 {
		return 0
	}
	s.StoredWh = clamp(s.StoredWh+e, 0, p.CapacityWh)
	return e
}

// Discharge withdraws up to requestWh, limited by the stored energy and limitWh.
// It returns the energy actually withdrawn.
func (s *BatteryState) Discharge(p BatteryParams, requestWh, limitWh float64) float64 {
	e := math.Min(requestWh, math.Min(s.StoredWh, limitWh))
	if e <= 0 {
		return 0
	}
	s.StoredWh = clamp(s.StoredWh-e, 0, p.CapacityWh)
	return e
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
