package models

import (
	"time"

	"github.com/MaStr/pv-bat-simulator/internal/analysis"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
)

// ComputeResponse keeps the key names of the original front end.
type ComputeResponse struct {
	ID    string `json:"id,omitempty"`
	Model int    `json:"modell"`

	Grid       []float64 `json:"netzbezug"`
	Discharge  []float64 `json:"batteriebezug"`
	Cost       []float64 `json:"kosten_pro_stunde"`
	Stored     []float64 `json:"batterie_stand"`
	Prices     []float64 `json:"preise"`
	Export     []float64 `json:"pv_ueberschuss"`
	Modes      []int     `json:"modi,omitempty"`
	GridCharge []float64 `json:"netzladung,omitempty"`

	TotalCost     float64 `json:"gesamtkosten"`
	TotalGridKWh  float64 `json:"gesamt_netzbezug_kwh"`
	WeightedPrice float64 `json:"gewichteter_preis"`
	Status        string  `json:"optimierungsstatus,omitempty"`
}

// NewComputeResponse renders a trace. Mode data is only sent for the mode-driven
// model and the solver status only for the optimizer.
func NewComputeResponse(id string, tr *dispatch.Trace) ComputeResponse {
	r := tr.Report()
	resp := ComputeResponse{
		ID:            id,
		Model:         int(r.Model),
		Grid:          r.Grid,
		Discharge:     r.Discharge,
		Cost:          r.Cost,
		Stored:        r.Stored,
		Prices:        r.Prices,
		Export:        r.Export,
		TotalCost:     r.TotalCost,
		TotalGridKWh:  r.TotalGridKWh,
		WeightedPrice: r.WeightedPrice,
	}
	switch r.Model {
	case dispatch.ModelModes:
		resp.Modes = r.Modes
		resp.GridCharge = r.GridCharge
	case dispatch.ModelOptimizer:
		resp.Status = r.Status.String()
	}
	return resp
}

// CompareResponse lists every applicable model, cheapest first.
type CompareResponse struct {
	Ranking []CompareEntry  `json:"rangliste"`
	Prices  *analysis.Stats `json:"preisstatistik,omitempty"`
}

type CompareEntry struct {
	Rank   int              `json:"rang"`
	Model  int              `json:"modell"`
	Name   string           `json:"name"`
	Result *ComputeResponse `json:"ergebnis,omitempty"`
	Error  *ErrorDetail     `json:"error,omitempty"`
}

// StoredResultResponse is returned by GET /api/v1/results/:id.
type StoredResultResponse struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Request   any             `json:"request,omitempty"`
	Result    ComputeResponse `json:"ergebnis"`
}

// StreamStep is one hourly websocket message.
type StreamStep struct {
	Type       string  `json:"type"` // "stunde"
	Hour       int     `json:"stunde"`
	Time       string  `json:"zeit,omitempty"`
	Grid       float64 `json:"netzbezug"`
	Discharge  float64 `json:"batteriebezug"`
	Charge     float64 `json:"ladung"`
	GridCharge float64 `json:"netzladung"`
	Export     float64 `json:"pv_ueberschuss"`
	Stored     float64 `json:"batterie_stand"`
	Price      float64 `json:"preis"`
	Cost       float64 `json:"kosten"`
	Mode       int     `json:"modus"`
	Action     string  `json:"aktion"`
}

// StreamSummary closes a websocket computation.
type StreamSummary struct {
	Type   string          `json:"type"` // "zusammenfassung"
	Result ComputeResponse `json:"ergebnis"`
}

// StreamError reports a failed websocket computation.
type StreamError struct {
	Type  string      `json:"type"` // "fehler"
	Error ErrorDetail `json:"error"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Specs       BatterySpecs `json:"specs"`
}

// BatterySpecs carries the preset in request units, ready to copy into a compute request.
type BatterySpecs struct {
	CapacityWh    float64 `json:"batterie_kapazitaet"`
	MaxChargeW    float64 `json:"max_lade_leistung"`
	MaxDischargeW float64 `json:"max_entlade_leistung"`
	InitialSOC    float64 `json:"anfangs_soc"`
}

// ModelInfo describes one dispatch model and the request fields it reads.
type ModelInfo struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a model parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "series", "string"
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ExampleResponse is the sample day shown on the front end.
type ExampleResponse struct {
	Consumption []float64 `json:"verbrauch"`
	Production  []float64 `json:"pv_strom"`
}

// PricesResponse is returned by GET /api/v1/prices.
type PricesResponse struct {
	Date   string         `json:"datum"`
	Market string         `json:"markt"`
	Prices []float64      `json:"preise"`
	Stats  analysis.Stats `json:"statistik"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
