package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/model"
	"github.com/MaStr/pv-bat-simulator/internal/strategy"
)

// Scenario is the on-disk shape of one offline computation (YAML).
type Scenario struct {
	Model int `yaml:"model"`

	// Day ("2006-01-02") and Timezone place the 24 hours on the calendar.
	// Both are optional; the mode-driven model then uses today.
	Day      string `yaml:"day"`
	Timezone string `yaml:"timezone"`

	// Optional: load battery parameters from a separate YAML (e.g. examples/batteries/*.yaml).
	// If both BatteryFile and Battery are provided, Battery overrides BatteryFile.
	BatteryFile string        `yaml:"battery_file"`
	Battery     BatteryConfig `yaml:"battery"`

	// Hourly series in Wh, given inline or as a JSON file ([24]float64 or {"values": [...]}).
	Consumption     []float64 `yaml:"consumption"`
	ConsumptionFile string    `yaml:"consumption_file"`
	Production      []float64 `yaml:"production"`
	ProductionFile  string    `yaml:"production_file"`

	Prices   PriceConfig    `yaml:"prices"`
	Strategy StrategyConfig `yaml:"strategy"`
}

type BatteryConfig struct {
	Name          string  `yaml:"name" json:"name"`
	Description   string  `yaml:"description" json:"description,omitempty"`
	CapacityWh    float64 `yaml:"capacity_wh" json:"capacity_wh"`
	MaxChargeW    float64 `yaml:"max_charge_w" json:"max_charge_w"`
	MaxDischargeW float64 `yaml:"max_discharge_w" json:"max_discharge_w"`
	InitialSOC    float64 `yaml:"initial_soc" json:"initial_soc"`
}

type PriceConfig struct {
	Flat       *float64  `yaml:"flat"` // €/kWh, model 1
	Gap        float64   `yaml:"gap"`  // €/kWh, models 1 and 3
	Hourly     []float64 `yaml:"hourly"`
	HourlyFile string    `yaml:"hourly_file"`
}

// StrategyConfig configures the decision policy of the mode-driven model.
type StrategyConfig struct {
	Name                      string  `yaml:"name"`
	MaxChargingFromGridLimit  float64 `yaml:"max_charging_from_grid_limit"`
	MinPriceDifference        float64 `yaml:"min_price_difference"`
	AlwaysAllowDischargeLimit float64 `yaml:"always_allow_discharge_limit"`
}

func Load(path string) (*Scenario, error) {
	s, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadUnchecked loads and merges a scenario, but does not validate it.
// Series file paths are resolved relative to the scenario file.
func LoadUnchecked(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	// If battery_file is set, load it and merge in any explicit overrides from s.Battery.
	if s.BatteryFile != "" {
		loaded, err := loadBatteryFile(resolve(dir, s.BatteryFile))
		if err != nil {
			return nil, err
		}
		s.Battery = MergeBattery(loaded, s.Battery)
	}
	for _, p := range []*string{&s.ConsumptionFile, &s.ProductionFile, &s.Prices.HourlyFile} {
		if *p != "" {
			*p = resolve(dir, *p)
		}
	}
	return &s, nil
}

// resolve prefers interpreting relative paths as relative to the config file directory,
// but falls back to the provided path (relative to cwd) if that doesn't exist.
func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

func (s *Scenario) Validate() error {
	if s == nil {
		return errors.New("scenario is nil")
	}
	m := dispatch.Model(s.Model)
	if !m.Valid() {
		return fmt.Errorf("model must be 1, 2, 3 or 4, got %d", s.Model)
	}
	if err := s.Battery.ToModelParams().Validate(); err != nil {
		return fmt.Errorf("battery config invalid: %w", err)
	}
	if len(s.Consumption) == 0 && s.ConsumptionFile == "" {
		return errors.New("consumption or consumption_file is required")
	}
	if len(s.Production) == 0 && s.ProductionFile == "" {
		return errors.New("production or production_file is required")
	}
	if m == dispatch.ModelFlatPrice && s.Prices.Flat == nil {
		return errors.New("model 1 requires prices.flat")
	}
	if m != dispatch.ModelFlatPrice && len(s.Prices.Hourly) == 0 && s.Prices.HourlyFile == "" {
		return fmt.Errorf("model %d requires prices.hourly or prices.hourly_file", s.Model)
	}
	if _, err := s.Start(); err != nil {
		return err
	}
	return nil
}

// Start returns midnight of Day in Timezone, or the zero time when Day is empty.
func (s *Scenario) Start() (time.Time, error) {
	if strings.TrimSpace(s.Day) == "" {
		return time.Time{}, nil
	}
	loc := time.Local
	if s.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(s.Timezone); err != nil {
			return time.Time{}, fmt.Errorf("timezone %q: %w", s.Timezone, err)
		}
	}
	day, err := time.ParseInLocation("2006-01-02", s.Day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("day %q: %w", s.Day, err)
	}
	return day, nil
}

// Request builds an engine request from the inline series. Callers load any
// *_file series into the scenario first.
func (s *Scenario) Request() (dispatch.Request, error) {
	start, err := s.Start()
	if err != nil {
		return dispatch.Request{}, err
	}
	var flat float64
	if s.Prices.Flat != nil {
		flat = *s.Prices.Flat
	}
	return dispatch.Request{
		Model: dispatch.Model(s.Model),
		Inputs: dispatch.Inputs{
			Consumption: model.Series(s.Consumption),
			Production:  model.Series(s.Production),
			Battery:     s.Battery.ToModelParams(),
			Start:       start,
		},
		PriceGap:     s.Prices.Gap,
		Prices:       model.Series(s.Prices.Hourly),
		FlatPrice:    flat,
		HasFlatPrice: s.Prices.Flat != nil,
		Policy:       s.Strategy.ToPolicyParams(),
		Strategy:     s.Strategy.Name,
	}, nil
}

func (b BatteryConfig) ToModelParams() model.BatteryParams {
	return model.BatteryParams{
		CapacityWh:    b.CapacityWh,
		MaxChargeW:    b.MaxChargeW,
		MaxDischargeW: b.MaxDischargeW,
		InitialSOC:    b.InitialSOC,
	}
}

func (c StrategyConfig) ToPolicyParams() strategy.PolicyParams {
	return strategy.PolicyParams{
		MaxChargingFromGridLimit:  c.MaxChargingFromGridLimit,
		MinPriceDifference:        c.MinPriceDifference,
		AlwaysAllowDischargeLimit: c.AlwaysAllowDischargeLimit,
	}
}

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

func loadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, fmt.Errorf("parse battery file %s: %w", path, err)
	}
	return w.Battery, nil
}

// BatteryPreset is a battery file found in a presets directory.
type BatteryPreset struct {
	ID      string
	Battery BatteryConfig
}

// LoadBatteryDir reads every *.yaml battery file in dir, sorted by ID (the file
// name without extension). Files that fail to parse are skipped and reported in
// the returned error slice.
func LoadBatteryDir(dir string) ([]BatteryPreset, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var presets []BatteryPreset
	var skipped []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		b, err := loadBatteryFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		if b.Name == "" {
			b.Name = id
		}
		presets = append(presets, BatteryPreset{ID: id, Battery: b})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presets, skipped, nil
}

// MergeBattery overlays non-zero fields from override onto base.
// This is used when loading a battery file and then applying overrides from the scenario or request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.CapacityWh != 0 {
		out.CapacityWh = override.CapacityWh
	}
	if override.MaxChargeW != 0 {
		out.MaxChargeW = override.MaxChargeW
	}
	if override.MaxDischargeW != 0 {
		out.MaxDischargeW = override.MaxDischargeW
	}
	// Note: 0 means "not set" here, so an override cannot force an empty battery.
	if override.InitialSOC != 0 {
		out.InitialSOC = override.InitialSOC
	}
	return out
}
