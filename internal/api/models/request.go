package models

import (
	"fmt"
	"time"

	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/model"
	"github.com/MaStr/pv-bat-simulator/internal/strategy"
)

// Defaults for the mode-driven policy when a request omits them.
const (
	DefaultMinPriceDifference        = 0.05
	DefaultAlwaysAllowDischargeLimit = 0.9
	DefaultMaxChargingFromGridLimit  = 0.8
)

// ComputeRequest is the body of POST /api/v1/compute and /berechnen.
// Energies are Wh, powers W, prices €/kWh.
type ComputeRequest struct {
	Model *int `json:"modell,omitempty" binding:"omitempty,oneof=1 2 3 4"` // default: 1

	Consumption []float64 `json:"verbrauch" binding:"required,len=24"`
	Production  []float64 `json:"pv_strom" binding:"required,len=24"`

	CapacityWh    *float64 `json:"batterie_kapazitaet" binding:"required"`
	MaxChargeW    *float64 `json:"max_lade_leistung" binding:"required"`
	MaxDischargeW *float64 `json:"max_entlade_leistung" binding:"required"`
	InitialSOC    float64  `json:"anfangs_soc,omitempty" binding:"gte=0,lte=1"`

	FlatPrice *float64  `json:"statischer_preis,omitempty"` // model 1
	PriceGap  *float64  `json:"preis_abstand,omitempty"`    // models 1 and 3
	Prices    []float64 `json:"preise,omitempty" binding:"omitempty,len=24"`

	// Model 4
	MinPriceDifference        *float64 `json:"min_preis_differenz,omitempty"`
	AlwaysAllowDischargeLimit *float64 `json:"always_allow_discharge_limit,omitempty"`
	MaxChargingFromGridLimit  *float64 `json:"max_charging_from_grid_limit,omitempty"`
	Strategy                  string   `json:"strategie,omitempty"`

	Date string `json:"datum,omitempty"` // YYYY-MM-DD
}

// ModelOrDefault returns the selected model, 1 when none was sent.
func (r ComputeRequest) ModelOrDefault() dispatch.Model {
	if r.Model == nil {
		return dispatch.ModelFlatPrice
	}
	return dispatch.Model(*r.Model)
}

// ToDispatch checks the model-specific fields and builds the engine request.
// Dates are interpreted in loc.
func (r ComputeRequest) ToDispatch(loc *time.Location) (dispatch.Request, error) {
	m := r.ModelOrDefault()
	req, err := r.base(m, loc)
	if err != nil {
		return req, err
	}

	switch m {
	case dispatch.ModelFlatPrice:
		if r.FlatPrice == nil {
			return req, missing("statischer_preis", m)
		}
		if r.PriceGap == nil {
			return req, missing("preis_abstand", m)
		}
	case dispatch.ModelOptimizer:
		if r.PriceGap == nil {
			return req, missing("preis_abstand", m)
		}
	}
	if m != dispatch.ModelFlatPrice && r.Prices == nil {
		return req, missing("preise", m)
	}
	return req, nil
}

// ToCompare builds a request carrying every price field that was sent, so that
// all applicable models can run on it. A missing price gap counts as zero.
func (r ComputeRequest) ToCompare(loc *time.Location) (dispatch.Request, error) {
	return r.base(0, loc)
}

func (r ComputeRequest) base(m dispatch.Model, loc *time.Location) (dispatch.Request, error) {
	req := dispatch.Request{
		Model: m,
		Inputs: dispatch.Inputs{
			Consumption: model.Series(r.Consumption),
			Production:  model.Series(r.Production),
			Battery: model.BatteryParams{
				CapacityWh:    deref(r.CapacityWh),
				MaxChargeW:    deref(r.MaxChargeW),
				MaxDischargeW: deref(r.MaxDischargeW),
				InitialSOC:    r.InitialSOC,
			},
		},
		FlatPrice:    deref(r.FlatPrice),
		HasFlatPrice: r.FlatPrice != nil,
		PriceGap:     deref(r.PriceGap),
		Prices:       model.Series(r.Prices),
		Policy: strategy.PolicyParams{
			MinPriceDifference:        orDefault(r.MinPriceDifference, DefaultMinPriceDifference),
			AlwaysAllowDischargeLimit: orDefault(r.AlwaysAllowDischargeLimit, DefaultAlwaysAllowDischargeLimit),
			MaxChargingFromGridLimit:  orDefault(r.MaxChargingFromGridLimit, DefaultMaxChargingFromGridLimit),
		},
		Strategy: r.Strategy,
	}
	if r.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", r.Date, loc)
		if err != nil {
			return req, fmt.Errorf("%w: datum must be in YYYY-MM-DD format", dispatch.ErrInvalidRequest)
		}
		req.Start = day
	}
	return req, nil
}

// PricesQuery is the query of GET /api/v1/prices.
type PricesQuery struct {
	Date   string `form:"date" binding:"required"`
	Market string `form:"market" binding:"omitempty,oneof=de at"`
}

func missing(field string, m dispatch.Model) error {
	return fmt.Errorf("%w: %s is required for model %d", dispatch.ErrInvalidRequest, field, int(m))
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
