package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTolerance = 1e-10
	feasibilityEps   = 1e-9
)

// Simplex solves a Problem with gonum's dense simplex implementation. The problem
// is rewritten into standard form (min cᵀy, Ay = b, y ≥ 0) by shifting every
// variable onto its finite bound, adding a row for each finite upper bound and a
// slack column for each inequality.
type Simplex struct {
	Tol float64
}

func NewSimplex() *Simplex {
	return &Simplex{Tol: DefaultTolerance}
}

func (s *Simplex) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid problem: %w", err)
	}

	sf := buildStandardForm(p)
	if sf.status != NotSolved {
		return &Solution{Status: sf.status, Detail: sf.detail}, nil
	}
	if len(sf.b) == 0 || len(sf.c) == 0 {
		// Nothing left to optimize: every structural column sits at zero.
		x := sf.recover(make([]float64, len(sf.c)))
		return &Solution{Status: Optimal, Objective: p.Evaluate(x), Values: x}, nil
	}
	if len(sf.b) > len(sf.c) {
		return &Solution{
			Status: Undefined,
			Detail: fmt.Sprintf("standard form has %d rows but only %d columns", len(sf.b), len(sf.c)),
		}, nil
	}

	tol := s.Tol
	if tol <= 0 {
		tol = DefaultTolerance
	}
	A := mat.NewDense(len(sf.b), len(sf.c), sf.a)
	_, y, err := gonumlp.Simplex(sf.c, A, sf.b, tol, nil)
	if err != nil {
		return &Solution{Status: statusFromError(err), Detail: err.Error()}, nil
	}

	x := sf.recover(y)
	return &Solution{Status: Optimal, Objective: p.Evaluate(x), Values: x}, nil
}

func statusFromError(err error) Status {
	switch {
	case errors.Is(err, gonumlp.ErrInfeasible):
		return Infeasible
	case errors.Is(err, gonumlp.ErrUnbounded):
		return Unbounded
	default:
		return Undefined
	}
}

// colRef maps a variable onto one standard-form column: x += sign*y[col].
type colRef struct {
	col  int
	sign float64
}

type standardForm struct {
	c []float64
	a []float64 // row-major, len(b) x len(c)
	b []float64

	offset  []float64  // per variable
	refs    [][]colRef // per variable, structural columns
	keep    []int      // structural column -> standard-form column, -1 when fixed at zero
	nStruct int

	status Status
	detail string
}

type row struct {
	coef  []float64 // over structural columns
	sense Sense
	rhs   float64
	name  string
}

type upperBound struct {
	col   int
	width float64
	name  string
}

func buildStandardForm(p *Problem) *standardForm {
	sf := &standardForm{
		offset: make([]float64, len(p.Vars)),
		refs:   make([][]colRef, len(p.Vars)),
	}

	var rows []row
	var upper []upperBound
	for i, v := range p.Vars {
		loFinite := !math.IsInf(v.Lower, 0)
		hiFinite := !math.IsInf(v.Upper, 0)
		switch {
		case loFinite:
			sf.offset[i] = v.Lower
			sf.refs[i] = []colRef{{col: sf.nStruct, sign: 1}}
			if hiFinite {
				upper = append(upper, upperBound{col: sf.nStruct, width: v.Upper - v.Lower, name: v.Name})
			}
			sf.nStruct++
		case hiFinite:
			sf.offset[i] = v.Upper
			sf.refs[i] = []colRef{{col: sf.nStruct, sign: -1}}
			sf.nStruct++
		default:
			sf.refs[i] = []colRef{{col: sf.nStruct, sign: 1}, {col: sf.nStruct + 1, sign: -1}}
			sf.nStruct += 2
		}
	}

	for _, c := range p.Constraints {
		r := row{coef: make([]float64, sf.nStruct), sense: c.Sense, rhs: c.RHS, name: c.Name}
		for _, t := range c.Terms {
			r.rhs -= t.Coef * sf.offset[t.Var]
			for _, ref := range sf.refs[t.Var] {
				r.coef[ref.col] += t.Coef * ref.sign
			}
		}
		if isZero(r.coef) {
			if !trivialRowHolds(r) {
				sf.status = Infeasible
				sf.detail = fmt.Sprintf("constraint %q reduces to 0 %s %g", c.Name, c.Sense, r.rhs)
				return sf
			}
			continue
		}
		rows = append(rows, r)
	}
	for _, u := range upper {
		r := row{coef: make([]float64, sf.nStruct), sense: LessEq, rhs: u.width, name: u.name + "_upper"}
		r.coef[u.col] = 1
		rows = append(rows, r)
	}

	structCost := make([]float64, sf.nStruct)
	for i, refs := range sf.refs {
		for _, ref := range refs {
			structCost[ref.col] += p.Objective[i] * ref.sign
		}
	}

	// Columns that appear in no row are pinned at zero, or make the problem
	// unbounded when they would lower the objective.
	sf.keep = make([]int, sf.nStruct)
	kept := 0
	for j := 0; j < sf.nStruct; j++ {
		used := false
		for _, r := range rows {
			if r.coef[j] != 0 {
				used = true
				break
			}
		}
		if !used {
			if structCost[j] < 0 {
				sf.status = Unbounded
				sf.detail = "objective decreases along an unconstrained direction"
				return sf
			}
			sf.keep[j] = -1
			continue
		}
		sf.keep[j] = kept
		kept++
	}

	slacks := 0
	for _, r := range rows {
		if r.sense != Equal {
			slacks++
		}
	}
	n := kept + slacks
	m := len(rows)
	sf.c = make([]float64, n)
	sf.a = make([]float64, m*n)
	sf.b = make([]float64, m)
	for j, k := range sf.keep {
		if k >= 0 {
			sf.c[k] = structCost[j]
		}
	}

	slack := kept
	for i, r := range rows {
		line := sf.a[i*n : (i+1)*n]
		for j, k := range sf.keep {
			if k >= 0 {
				line[k] = r.coef[j]
			}
		}
		switch r.sense {
		case LessEq:
			line[slack] = 1
			slack++
		case GreaterEq:
			line[slack] = -1
			slack++
		}
		sf.b[i] = r.rhs
		if r.rhs < 0 {
			sf.b[i] = -r.rhs
			for j := range line {
				line[j] = -line[j]
			}
		}
	}
	return sf
}

// recover maps a standard-form point back onto the original variables.
func (sf *standardForm) recover(y []float64) []float64 {
	structural := make([]float64, sf.nStruct)
	for j, k := range sf.keep {
		if k >= 0 && k < len(y) {
			structural[j] = y[k]
		}
	}
	x := make([]float64, len(sf.offset))
	for i := range x {
		x[i] = sf.offset[i]
		for _, ref := range sf.refs[i] {
			x[i] += ref.sign * structural[ref.col]
		}
	}
	return x
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func trivialRowHolds(r row) bool {
	switch r.sense {
	case LessEq:
		return r.rhs >= -feasibilityEps
	case GreaterEq:
		return r.rhs <= feasibilityEps
	default:
		return math.Abs(r.rhs) <= feasibilityEps
	}
}
