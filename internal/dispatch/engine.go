package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/lp"
	"github.com/MaStr/pv-bat-simulator/internal/model"
	"github.com/MaStr/pv-bat-simulator/internal/strategy"
)

// Model selects one of the four dispatch engines. The numbers are part of the wire format.
type Model int

const (
	ModelFlatPrice    Model = 1
	ModelDynamicPrice Model = 2
	ModelOptimizer    Model = 3
	ModelModes        Model = 4
)

var AllModels = []Model{ModelFlatPrice, ModelDynamicPrice, ModelOptimizer, ModelModes}

func (m Model) Valid() bool { return m >= ModelFlatPrice && m <= ModelModes }

func (m Model) String() string {
	switch m {
	case ModelFlatPrice:
		return "greedy_flat"
	case ModelDynamicPrice:
		return "greedy_dynamic"
	case ModelOptimizer:
		return "lp_optimizer"
	case ModelModes:
		return "mode_driven"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownModel   = errors.New("unknown model")
)

// SolverStatusError reports a non-optimal LP outcome. The trace returned next to
// it carries the same status and no hourly values.
type SolverStatusError struct {
	Status lp.Status
	Detail string
}

func (e *SolverStatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("optimizer finished with status %q", e.Status)
	}
	return fmt.Sprintf("optimizer finished with status %q: %s", e.Status, e.Detail)
}

// Inputs are the series and battery shared by every engine.
type Inputs struct {
	Consumption model.Series // Wh
	Production  model.Series // Wh
	Battery     model.BatteryParams
	// Start is midnight of the simulated day. Optional except for the mode-driven engine,
	// which falls back to today in the engine's location.
	Start time.Time
}

func (in Inputs) Validate() error {
	if err := model.ValidateSeries("consumption", in.Consumption); err != nil {
		return err
	}
	if err := model.ValidateSeries("production", in.Production); err != nil {
		return err
	}
	return in.Battery.Validate()
}

func (in Inputs) hourTime(hour int) time.Time {
	if in.Start.IsZero() {
		return time.Time{}
	}
	y, m, d := in.Start.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, in.Start.Location())
}

// Request is a complete computation request for any model.
type Request struct {
	Model Model
	Inputs

	FlatPrice float64      // Model 1, €/kWh
	PriceGap  float64      // Models 1 and 3, €/kWh
	Prices    model.Series // Models 2-4, €/kWh

	// HasFlatPrice is set when FlatPrice was given, so a tariff of 0 still
	// counts as present when choosing models to compare.
	HasFlatPrice bool

	Policy   strategy.PolicyParams // Model 4
	Strategy string                // Model 4, registry name; empty selects the default
}

func (r Request) Validate() error {
	if !r.Model.Valid() {
		return fmt.Errorf("%w: %w %d", ErrInvalidRequest, ErrUnknownModel, int(r.Model))
	}
	if err := r.Inputs.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if math.IsNaN(r.PriceGap) || math.IsInf(r.PriceGap, 0) {
		return fmt.Errorf("%w: price gap must be finite", ErrInvalidRequest)
	}
	switch r.Model {
	case ModelFlatPrice:
		if math.IsNaN(r.FlatPrice) || math.IsInf(r.FlatPrice, 0) {
			return fmt.Errorf("%w: flat price must be finite", ErrInvalidRequest)
		}
	default:
		if err := model.ValidateSeries("prices", r.Prices); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if r.Model == ModelModes {
		if err := r.Policy.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// Engine runs the dispatch models. Engines keep no state between runs and may be
// shared across goroutines.
type Engine struct {
	solver   lp.Solver
	location *time.Location
	now      func() time.Time
}

type Option func(*Engine)

// WithSolver replaces the default gonum simplex solver.
func WithSolver(s lp.Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// WithLocation sets the timezone used when a mode-driven run has no start day.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		solver:   lp.NewSimplex(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates the request and executes the selected model.
func (e *Engine) Run(ctx context.Context, req Request) (*Trace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Stringer("model", req.Model).Msg("dispatch run")

	switch req.Model {
	case ModelFlatPrice:
		return e.RunGreedy(ModelFlatPrice, req.Inputs, FlatPrice(req.FlatPrice)), nil
	case ModelDynamicPrice:
		return e.RunGreedy(ModelDynamicPrice, req.Inputs, PriceSeries(req.Prices)), nil
	case ModelOptimizer:
		return e.RunOptimizer(ctx, req.Inputs, req.Prices, PriceGate{Gap: req.PriceGap})
	default:
		policy, err := strategy.New(req.Strategy)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return e.RunModes(ctx, req.Inputs, req.Prices, policy, req.Policy)
	}
}

func (e *Engine) startOfDay() time.Time {
	now := e.now().In(e.location)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location)
}
