package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

func forecast(cons, prod, prices []float64, stored, capacity float64) Forecast {
	m := make(map[int]float64, len(prices))
	for i, p := range prices {
		m[i] = p
	}
	return Forecast{
		Production:  prod,
		Consumption: cons,
		Prices:      m,
		StoredWh:    stored,
		UsableWh:    stored,
		FreeWh:      capacity - stored,
	}
}

func configured(t *testing.T, params PolicyParams) *PriceGapLogic {
	t.Helper()
	l := &PriceGapLogic{}
	require.NoError(t, l.Configure(params))
	return l
}

var defaultParams = PolicyParams{
	MaxChargingFromGridLimit:  0.8,
	MinPriceDifference:        0.05,
	AlwaysAllowDischargeLimit: 0.9,
}

func TestInverterSettings_Mode(t *testing.T) {
	assert.Equal(t, model.ModeChargeFromGrid, InverterSettings{ChargeFromGrid: true, AllowDischarge: true}.Mode())
	assert.Equal(t, model.ModeChargeFromGrid, InverterSettings{ChargeFromGrid: true}.Mode())
	assert.Equal(t, model.ModeAvoidDischarge, InverterSettings{}.Mode())
	assert.Equal(t, model.ModeDischargeAllowed, InverterSettings{AllowDischarge: true}.Mode())
}

func TestPriceGapLogic_AboveAlwaysAllowLimit(t *testing.T) {
	l := configured(t, defaultParams)
	f := forecast([]float64{500, 500}, []float64{0, 0}, []float64{0.1, 0.5}, 9500, 10000)

	s, err := l.Decide(context.Background(), f, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ModeDischargeAllowed, s.Mode())
}

func TestPriceGapLogic_EnoughEnergyForExpensiveHours(t *testing.T) {
	l := configured(t, defaultParams)
	f := forecast(
		[]float64{500, 500, 500, 500},
		[]float64{0, 0, 0, 0},
		[]float64{0.30, 0.35, 0.20, 0.40},
		2000, 10000,
	)

	// Only hour 1 is pricier before the price drops at hour 2: 500 Wh reserved.
	s, err := l.Decide(context.Background(), f, time.Now())
	require.NoError(t, err)
	assert.True(t, s.AllowDischarge)
	assert.False(t, s.ChargeFromGrid)
}

func TestPriceGapLogic_ChargesBeforePeak(t *testing.T) {
	l := configured(t, defaultParams)
	f := forecast(
		[]float64{500, 500, 500, 500},
		[]float64{0, 0, 0, 0},
		[]float64{0.20, 0.30, 0.35, 0.32},
		500, 10000,
	)

	// Reserved = 1500 Wh for hours 1..3, usable 500 Wh.
	s, err := l.Decide(context.Background(), f, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ModeChargeFromGrid, s.Mode())
	assert.InDelta(t, 1000, s.ChargeRateW, 1e-9)
}

func TestPriceGapLogic_ChargeCappedByGridLimit(t *testing.T) {
	params := defaultParams
	params.MaxChargingFromGridLimit = 0.1
	l := configured(t, params)
	f := forecast(
		[]float64{500, 2000, 2000},
		[]float64{0, 0, 0},
		[]float64{0.10, 0.40, 0.40},
		500, 10000,
	)

	s, err := l.Decide(context.Background(), f, time.Now())
	require.NoError(t, err)
	assert.True(t, s.ChargeFromGrid)
	assert.InDelta(t, 500, s.ChargeRateW, 1e-9)
}

func TestPriceGapLogic_SmallSpreadHolds(t *testing.T) {
	l := configured(t, defaultParams)
	f := forecast(
		[]float64{500, 500, 500},
		[]float64{0, 0, 0},
		[]float64{0.30, 0.32, 0.33},
		0, 10000,
	)

	s, err := l.Decide(context.Background(), f, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ModeAvoidDischarge, s.Mode())
}

func TestPriceGapLogic_PVSurplusCoversNeed(t *testing.T) {
	l := configured(t, defaultParams)
	f := forecast(
		[]float64{500, 0, 500},
		[]float64{0, 2000, 0},
		[]float64{0.10, 0.30, 0.40},
		0, 10000,
	)

	s, err := l.Decide(context.Background(), f, time.Now())
	require.NoError(t, err)
	assert.False(t, s.ChargeFromGrid)
}

func TestPolicyParams_Validate(t *testing.T) {
	assert.NoError(t, defaultParams.Validate())

	bad := defaultParams
	bad.MaxChargingFromGridLimit = 1.5
	assert.Error(t, bad.Validate())

	bad = defaultParams
	bad.MinPriceDifference = -0.1
	assert.Error(t, bad.Validate())

	assert.Error(t, (&PriceGapLogic{}).Configure(bad))
}

func TestSchedulePolicy_Windows(t *testing.T) {
	s, err := NewSchedulePolicy(ScheduleParams{
		ChargeStart: "23:00",
		ChargeEnd:   "02:00",
		HoldStart:   "02:00",
		HoldEnd:     "06:00",
		ChargeRateW: 1500,
	})
	require.NoError(t, err)

	at := func(h int) time.Time { return time.Date(2024, 6, 1, h, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	got, err := s.Decide(ctx, Forecast{}, at(0))
	require.NoError(t, err)
	assert.Equal(t, model.ModeChargeFromGrid, got.Mode())
	assert.Equal(t, 1500.0, got.ChargeRateW)

	got, _ = s.Decide(ctx, Forecast{}, at(23))
	assert.Equal(t, model.ModeChargeFromGrid, got.Mode())

	got, _ = s.Decide(ctx, Forecast{}, at(3))
	assert.Equal(t, model.ModeAvoidDischarge, got.Mode())

	got, _ = s.Decide(ctx, Forecast{}, at(12))
	assert.Equal(t, model.ModeDischargeAllowed, got.Mode())
}

func TestSchedulePolicy_InvalidTime(t *testing.T) {
	_, err := NewSchedulePolicy(ScheduleParams{ChargeStart: "25:00", ChargeEnd: "03:00"})
	assert.Error(t, err)

	_, err = NewSchedulePolicy(ScheduleParams{ChargeStart: "nope", ChargeEnd: "03:00"})
	assert.Error(t, err)
}

func TestInWindow(t *testing.T) {
	assert.False(t, inWindow(60, 60, 60))
	assert.True(t, inWindow(60, 0, 120))
	assert.False(t, inWindow(120, 0, 120))
	assert.True(t, inWindow(10, 1380, 120))
	assert.False(t, inWindow(600, 1380, 120))
}

func TestNew(t *testing.T) {
	p, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy, p.Name())

	p, err = New("schedule")
	require.NoError(t, err)
	assert.Equal(t, "schedule", p.Name())

	_, err = New("oracle")
	assert.Error(t, err)

	assert.Equal(t, []string{"price_gap", "schedule"}, Names())
}
