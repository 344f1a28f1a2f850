// Package lp holds a small declarative linear-program model and the solvers that
// accept it. A Problem is plain data: bounded continuous variables, a linear
// objective to minimize and linear constraints.
package lp

import (
	"context"
	"fmt"
	"math"
)

// Sense is the relation between a constraint's left-hand side and its RHS.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Variable is a continuous decision variable with inclusive bounds.
// Use math.Inf for an open side.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
}

// Term is one coefficient*variable product.
type Term struct {
	Var  int
	Coef float64
}

// T is shorthand for building a Term.
func T(v int, coef float64) Term { return Term{Var: v, Coef: coef} }

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is "minimize Σ Objective[i]*x[i]" subject to Constraints and variable bounds.
type Problem struct {
	Name        string
	Vars        []Variable
	Objective   []float64
	Constraints []Constraint
}

func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddVariable registers a variable and returns its index.
func (p *Problem) AddVariable(name string, lower, upper float64) int {
	p.Vars = append(p.Vars, Variable{Name: name, Lower: lower, Upper: upper})
	p.Objective = append(p.Objective, 0)
	return len(p.Vars) - 1
}

// SetObjective sets the cost coefficient of variable v.
func (p *Problem) SetObjective(v int, coef float64) {
	p.Objective[v] = coef
}

func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// Validate checks indices and numeric sanity. It does not check feasibility.
func (p *Problem) Validate() error {
	if len(p.Vars) == 0 {
		return fmt.Errorf("problem %q has no variables", p.Name)
	}
	if len(p.Objective) != len(p.Vars) {
		return fmt.Errorf("problem %q: objective has %d coefficients for %d variables", p.Name, len(p.Objective), len(p.Vars))
	}
	for i, v := range p.Vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) {
			return fmt.Errorf("variable %q: NaN bound", v.Name)
		}
		if v.Lower > v.Upper {
			return fmt.Errorf("variable %q: lower bound %g exceeds upper bound %g", v.Name, v.Lower, v.Upper)
		}
		if !finite(p.Objective[i]) {
			return fmt.Errorf("variable %q: objective coefficient must be finite", v.Name)
		}
	}
	for _, c := range p.Constraints {
		if !finite(c.RHS) {
			return fmt.Errorf("constraint %q: right-hand side must be finite", c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return fmt.Errorf("constraint %q: unknown variable index %d", c.Name, t.Var)
			}
			if !finite(t.Coef) {
				return fmt.Errorf("constraint %q: coefficient must be finite", c.Name)
			}
		}
	}
	return nil
}

// Evaluate returns the objective value at x.
func (p *Problem) Evaluate(x []float64) float64 {
	total := 0.0
	for i, c := range p.Objective {
		total += c * x[i]
	}
	return total
}

// Solution is the solver outcome. Values is only meaningful when Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	// Detail carries the underlying solver message for non-optimal outcomes.
	Detail string
}

// Value returns the value of variable v, or 0 when no values are available.
func (s *Solution) Value(v int) float64 {
	if s == nil || v < 0 || v >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Solver solves a Problem. Implementations return an error only for malformed
// problems or cancellation; solver outcomes are reported through Solution.Status.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
