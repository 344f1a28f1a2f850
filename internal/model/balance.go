package model

import "math"

// Flow is the partition of one hour's demand and production.
//
// Balance rule: Demand = GridWh + DischargeWh + ProductionWh - ChargeWh - ExportWh,
// where ChargeWh includes GridChargeWh (energy drawn from the grid only to charge).
type Flow struct {
	DemandWh     float64
	ProductionWh float64
	GridWh       float64 // total grid draw, including GridChargeWh
	DischargeWh  float64
	ChargeWh     float64 // total energy stored, PV and grid
	GridChargeWh float64
	ExportWh     float64 // surplus production neither consumed nor stored
}

// WhToKWh converts watt-hours to kilowatt-hours.
func WhToKWh(wh float64) float64 { return wh / 1000 }

// KWhToWh converts kilowatt-hours to watt-hours.
func KWhToWh(kwh float64) float64 { return kwh * 1000 }

// CostEUR is the price of drawing gridWh from the grid at pricePerKWh.
func CostEUR(gridWh, pricePerKWh float64) float64 {
	return WhToKWh(gridWh) * pricePerKWh
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Balance applies the self-consumption rule for one hour: production covers demand
// first, surplus charges the battery and the rest is exported; a shortfall is met by
// the battery and then by the grid.
func Balance(demandWh, productionWh float64, s *BatteryState, p BatteryParams) Flow {
	f := Flow{DemandWh: demandWh, ProductionWh: productionWh}
	if productionWh >= demandWh {
		absorbSurplus(&f, s, p)
		return f
	}
	shortfall := demandWh - productionWh
	f.DischargeWh = s.Discharge(p, shortfall, p.MaxDischargeW)
	f.GridWh = shortfall - f.DischargeWh
	return f
}

// BalanceNoDischarge is Balance with the battery held: surplus still charges it,
// but a shortfall is drawn entirely from the grid.
func BalanceNoDischarge(demandWh, productionWh float64, s *BatteryState, p BatteryParams) Flow {
	f := Flow{DemandWh: demandWh, ProductionWh: productionWh}
	if productionWh >= demandWh {
		absorbSurplus(&f, s, p)
		return f
	}
	f.GridWh = demandWh - productionWh
	return f
}

// BalanceGridCharge holds the battery like BalanceNoDischarge and then draws extra
// grid energy into it. The grid charge is
//
//	max(0, min(chargeRateW - pvCharge, CapacityWh*maxGridFraction - stored))
//
// further limited by the remaining headroom and charge power.
func BalanceGridCharge(demandWh, productionWh, chargeRateW, maxGridFraction float64, s *BatteryState, p BatteryParams) Flow {
	f := BalanceNoDischarge(demandWh, productionWh, s, p)
	target := math.Min(chargeRateW-f.ChargeWh, p.CapacityWh*maxGridFraction-s.StoredWh)
	if target <= 0 {
		return f
	}
	stored := s.Charge(p, target, p.MaxChargeW-f.ChargeWh)
	f.GridChargeWh = stored
	f.ChargeWh += stored
	f.GridWh += stored
	return f
}

func absorbSurplus(f *Flow, s *BatteryState, p BatteryParams) {
	surplus := f.ProductionWh - f.DemandWh
	f.ChargeWh = s.Charge(p, surplus, p.MaxChargeW)
	f.ExportWh = surplus - f.ChargeWh
}
