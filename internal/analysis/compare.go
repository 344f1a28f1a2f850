// Package analysis compares dispatch models and summarises price series.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/model"
)

var ErrNothingToCompare = errors.New("request has neither a flat price nor a price series")

// Outcome is one model's result within a comparison. A model the solver could not
// optimise carries Err and ranks after every successful model.
type Outcome struct {
	Model dispatch.Model
	Trace *dispatch.Trace
	Err   error
}

// Failed reports whether the model produced no usable trace.
func (o Outcome) Failed() bool { return o.Err != nil }

// Comparison lists outcomes cheapest first.
type Comparison struct {
	Outcomes []Outcome
	// Prices is nil when only a flat price was given.
	Prices *Stats
}

// Best returns the cheapest successful outcome, if any.
func (c Comparison) Best() (Outcome, bool) {
	if len(c.Outcomes) == 0 || c.Outcomes[0].Failed() {
		return Outcome{}, false
	}
	return c.Outcomes[0], true
}

// Applicable lists the models a request has inputs for: model 1 when a flat price
// was given (zero included), models 2 to 4 when a full price series is present.
func Applicable(req dispatch.Request) []dispatch.Model {
	var out []dispatch.Model
	if req.HasFlatPrice {
		out = append(out, dispatch.ModelFlatPrice)
	}
	if len(req.Prices) == model.Hours {
		out = append(out, dispatch.ModelDynamicPrice, dispatch.ModelOptimizer, dispatch.ModelModes)
	}
	return out
}

// Compare runs every applicable model concurrently and ranks them by total cost.
// Invalid input aborts the whole comparison; a non-optimal solver status only marks
// that model as failed.
func Compare(ctx context.Context, engine *dispatch.Engine, req dispatch.Request) (*Comparison, error) {
	models := Applicable(req)
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: %w", dispatch.ErrInvalidRequest, ErrNothingToCompare)
	}

	outcomes := make([]Outcome, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		i, m := i, m
		g.Go(func() error {
			r := req
			r.Model = m
			tr, err := engine.Run(gctx, r)

			var statusErr *dispatch.SolverStatusError
			if errors.As(err, &statusErr) {
				outcomes[i] = Outcome{Model: m, Trace: tr, Err: err}
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			outcomes[i] = Outcome{Model: m, Trace: tr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Rank(outcomes)
	log.Debug().Int("models", len(outcomes)).Msg("[Compare] done")

	cmp := &Comparison{Outcomes: outcomes}
	if len(req.Prices) == model.Hours {
		st := PriceStats(req.Prices)
		cmp.Prices = &st
	}
	return cmp, nil
}

// Rank sorts outcomes ascending by total cost; failed outcomes go last. Ties keep
// model order.
func Rank(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}
		if a.Failed() {
			return a.Model < b.Model
		}
		ca, cb := a.Trace.TotalCost(), b.Trace.TotalCost()
		if ca != cb {
			return ca < cb
		}
		return a.Model < b.Model
	})
}
