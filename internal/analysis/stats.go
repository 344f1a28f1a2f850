package analysis

import (
	"math"
	"sort"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// Stats summarises one day of hourly prices (€/kWh). It does not depend on a
// battery; Arbitrage is the best daily margin of a canonical 1 kWh / 1 kW store.
type Stats struct {
	Count int `json:"anzahl"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mittel"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spanne"`

	CheapestHour int `json:"guenstigste_stunde"`
	PeakHour     int `json:"teuerste_stunde"`

	// Arbitrage (€) from a lossless store that starts empty, holds 1 kWh and moves
	// at most 1 kWh per hour.
	Arbitrage float64 `json:"arbitrage"`
}

func PriceStats(prices model.Series) Stats {
	st := Stats{}
	if len(prices) == 0 {
		return st
	}
	st.Count = len(prices)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(prices))
	for h, v := range prices {
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
			st.CheapestHour = h
		}
		if v > maxv {
			maxv = v
			st.PeakHour = h
		}
	}
	sort.Float64s(vals)
	st.Min = minv
	st.Max = maxv
	st.Mean = sum / float64(len(vals))
	st.P05 = percentileSorted(vals, 0.05)
	st.P95 = percentileSorted(vals, 0.95)
	st.SpreadP95P05 = st.P95 - st.P05
	st.Arbitrage = arbitrageCanonical(prices)
	return st
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// arbitrageCanonical runs a two-state DP (empty / full) over the day.
func arbitrageCanonical(prices model.Series) float64 {
	negInf := math.Inf(-1)
	empty, full := 0.0, negInf
	for _, price := range prices {
		nextEmpty := math.Max(empty, full+price)
		nextFull := math.Max(full, empty-price)
		empty, full = nextEmpty, nextFull
	}
	// Energy left in the store has no value at the end of the day.
	return math.Max(empty, 0)
}
