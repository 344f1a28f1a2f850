package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/strategy"
)

var commonParameters = []models.ParameterInfo{
	{Name: "verbrauch", Type: "series", Description: "Hourly consumption in Wh (24 values)", Required: true},
	{Name: "pv_strom", Type: "series", Description: "Hourly PV production in Wh (24 values)", Required: true},
	{Name: "batterie_kapazitaet", Type: "float", Description: "Usable battery capacity in Wh", Required: true},
	{Name: "max_lade_leistung", Type: "float", Description: "Maximum charge power in W", Required: true},
	{Name: "max_entlade_leistung", Type: "float", Description: "Maximum discharge power in W", Required: true},
	{Name: "anfangs_soc", Type: "float", Description: "Initial state of charge (0-1)", Default: 0.0},
	{Name: "datum", Type: "string", Description: "Simulated day (YYYY-MM-DD)"},
}

func withCommon(extra ...models.ParameterInfo) []models.ParameterInfo {
	out := append([]models.ParameterInfo(nil), commonParameters...)
	return append(out, extra...)
}

// ListModels handles GET /api/v1/models
func ListModels(c *gin.Context) {
	catalog := []models.ModelInfo{
		{
			ID:          int(dispatch.ModelFlatPrice),
			Name:        dispatch.ModelFlatPrice.String(),
			Description: "Greedy self-consumption at one flat electricity price. PV surplus charges the battery, deficits discharge it.",
			Parameters: withCommon(
				models.ParameterInfo{Name: "statischer_preis", Type: "float", Description: "Flat price in EUR/kWh", Required: true},
				models.ParameterInfo{Name: "preis_abstand", Type: "float", Description: "Price gap in EUR/kWh (accepted, not used by this model)", Required: true},
			),
		},
		{
			ID:          int(dispatch.ModelDynamicPrice),
			Name:        dispatch.ModelDynamicPrice.String(),
			Description: "Greedy self-consumption under hourly prices, with a consumption-weighted average price.",
			Parameters: withCommon(
				models.ParameterInfo{Name: "preise", Type: "series", Description: "Hourly prices in EUR/kWh (24 values)", Required: true},
			),
		},
		{
			ID:          int(dispatch.ModelOptimizer),
			Name:        dispatch.ModelOptimizer.String(),
			Description: "Linear program minimising the day's grid cost. Discharge is only allowed in hours priced at least the price gap below the peak.",
			Parameters: withCommon(
				models.ParameterInfo{Name: "preise", Type: "series", Description: "Hourly prices in EUR/kWh (24 values)", Required: true},
				models.ParameterInfo{Name: "preis_abstand", Type: "float", Description: "Price gap in EUR/kWh", Required: true},
			),
		},
		{
			ID:          int(dispatch.ModelModes),
			Name:        dispatch.ModelModes.String(),
			Description: "Hourly decision policy choosing between grid charging (-1), holding (0) and discharging (10).",
			Parameters: withCommon(
				models.ParameterInfo{Name: "preise", Type: "series", Description: "Hourly prices in EUR/kWh (24 values)", Required: true},
				models.ParameterInfo{Name: "min_preis_differenz", Type: "float", Description: "Minimum price spread in EUR/kWh before grid charging", Default: models.DefaultMinPriceDifference},
				models.ParameterInfo{Name: "always_allow_discharge_limit", Type: "float", Description: "SOC above which discharging is always allowed", Default: models.DefaultAlwaysAllowDischargeLimit},
				models.ParameterInfo{Name: "max_charging_from_grid_limit", Type: "float", Description: "SOC up to which grid charging is allowed", Default: models.DefaultMaxChargingFromGridLimit},
				models.ParameterInfo{Name: "strategie", Type: "string", Description: "Decision policy name", Default: strategy.DefaultPolicy},
			),
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"models":     catalog,
		"strategies": strategy.Names(),
	})
}
