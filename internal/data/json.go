package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

// LoadSeriesFile reads an hourly series from JSON. Both a bare array and an
// object of the form {"values": [...]} are accepted.
func LoadSeriesFile(path string) (model.Series, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSeries(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func ParseSeries(raw []byte) (model.Series, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var s model.Series
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
	var wrapped struct {
		Values model.Series `json:"values"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Values == nil {
		return nil, fmt.Errorf("no values found")
	}
	return wrapped.Values, nil
}

// ExampleConsumption and ExampleProduction describe a typical household day (Wh).
var (
	ExampleConsumption = model.Series{300, 250, 200, 180, 200, 350, 500, 600, 400, 350, 300, 350, 400, 350, 300, 400, 600, 800, 900, 700, 600, 500, 400, 350}
	ExampleProduction  = model.Series{0, 0, 0, 0, 0, 50, 200, 400, 600, 800, 900, 950, 900, 800, 600, 400, 200, 50, 0, 0, 0, 0, 0, 0}
)
