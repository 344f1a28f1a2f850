package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = BatteryParams{
	CapacityWh:    5000,
	MaxChargeW:    2000,
	MaxDischargeW: 2000,
}

func TestBatteryParams_Validate(t *testing.T) {
	require.NoError(t, testParams.Validate())

	bad := testParams
	bad.CapacityWh = 0
	assert.Error(t, bad.Validate())

	bad = testParams
	bad.MaxDischargeW = -1
	assert.Error(t, bad.Validate())

	bad = testParams
	bad.InitialSOC = 1.2
	assert.Error(t, bad.Validate())
}

func TestBalance_SurplusChargesBattery(t *testing.T) {
	s := NewBatteryState(testParams)
	f := Balance(500, 1200, &s, testParams)

	assert.InDelta(t, 700, f.ChargeWh, 1e-9)
	assert.InDelta(t, 0, f.ExportWh, 1e-9)
	assert.InDelta(t, 0, f.GridWh, 1e-9)
	assert.InDelta(t, 700, s.StoredWh, 1e-9)
}

func TestBalance_SurplusLimitedByChargePower(t *testing.T) {
	s := NewBatteryState(testParams)
	f := Balance(0, 3000, &s, testParams)

	assert.InDelta(t, 2000, f.ChargeWh, 1e-9)
	assert.InDelta(t, 1000, f.ExportWh, 1e-9)
}

func TestBalance_SurplusLimitedByHeadroom(t *testing.T) {
	s := BatteryState{StoredWh: 4800}
	f := Balance(100, 1100, &s, testParams)

	assert.InDelta(t, 200, f.ChargeWh, 1e-9)
	assert.InDelta(t, 800, f.ExportWh, 1e-9)
	assert.InDelta(t, testParams.CapacityWh, s.StoredWh, 1e-9)
}

func TestBalance_ShortfallDischargesThenGrid(t *testing.T) {
	s := BatteryState{StoredWh: 300}
	f := Balance(1000, 200, &s, testParams)

	assert.InDelta(t, 300, f.DischargeWh, 1e-9)
	assert.InDelta(t, 500, f.GridWh, 1e-9)
	assert.InDelta(t, 0, s.StoredWh, 1e-9)
}

func TestBalance_ShortfallLimitedByDischargePower(t *testing.T) {
	s := BatteryState{StoredWh: 5000}
	f := Balance(3500, 0, &s, testParams)

	assert.InDelta(t, 2000, f.DischargeWh, 1e-9)
	assert.InDelta(t, 1500, f.GridWh, 1e-9)
	assert.InDelta(t, 3000, s.StoredWh, 1e-9)
}

func TestBalanceNoDischarge_HoldsBattery(t *testing.T) {
	s := BatteryState{StoredWh: 3000}
	f := BalanceNoDischarge(1000, 200, &s, testParams)

	assert.InDelta(t, 0, f.DischargeWh, 1e-9)
	assert.InDelta(t, 800, f.GridWh, 1e-9)
	assert.InDelta(t, 3000, s.StoredWh, 1e-9)
}

func TestBalanceGridCharge(t *testing.T) {
	t.Run("shortfall plus grid charge", func(t *testing.T) {
		s := BatteryState{StoredWh: 1000}
		f := BalanceGridCharge(500, 0, 1500, 0.8, &s, testParams)

		assert.InDelta(t, 1500, f.GridChargeWh, 1e-9)
		assert.InDelta(t, 2000, f.GridWh, 1e-9)
		assert.InDelta(t, 2500, s.StoredWh, 1e-9)
	})

	t.Run("capped by grid charge fraction", func(t *testing.T) {
		s := BatteryState{StoredWh: 3800}
		f := BalanceGridCharge(0, 0, 2000, 0.8, &s, testParams)

		assert.InDelta(t, 200, f.GridChargeWh, 1e-9)
		assert.InDelta(t, 4000, s.StoredWh, 1e-9)
	})

	t.Run("pv surplus counts against charge rate", func(t *testing.T) {
		s := NewBatteryState(testParams)
		f := BalanceGridCharge(200, 800, 1000, 1, &s, testParams)

		assert.InDelta(t, 600, f.ChargeWh-f.GridChargeWh, 1e-9)
		assert.InDelta(t, 400, f.GridChargeWh, 1e-9)
		assert.InDelta(t, 400, f.GridWh, 1e-9)
	})

	t.Run("never negative", func(t *testing.T) {
		s := BatteryState{StoredWh: 4500}
		f := BalanceGridCharge(100, 0, 1000, 0.5, &s, testParams)

		assert.Zero(t, f.GridChargeWh)
		assert.InDelta(t, 100, f.GridWh, 1e-9)
	})
}

func TestBalance_EnergyConservation(t *testing.T) {
	s := BatteryState{StoredWh: 2500}
	demand := []float64{300, 900, 0, 4000, 1200}
	production := []float64{1500, 100, 2600, 0, 1200}
	for i := range demand {
		f := Balance(demand[i], production[i], &s, testParams)
		supplied := f.ProductionWh + f.GridWh + f.DischargeWh
		assert.InDelta(t, supplied-f.DemandWh, f.ChargeWh+f.ExportWh, 1e-9, "hour %d", i)
		assert.GreaterOrEqual(t, s.StoredWh, 0.0)
		assert.LessOrEqual(t, s.StoredWh, testParams.CapacityWh)
	}
}

func TestActionFromFlow(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromFlow(100, 0))
	assert.Equal(t, ActionDischarging, ActionFromFlow(0, 100))
	assert.Equal(t, ActionIdle, ActionFromFlow(0, 0))
}

func TestValidateSeries(t *testing.T) {
	assert.NoError(t, ValidateSeries("verbrauch", Constant(1)))
	err := ValidateSeries("verbrauch", make(Series, 23))
	assert.ErrorIs(t, err, ErrSeriesLength)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 0.0075, Round(0.00749999, 4))
}
