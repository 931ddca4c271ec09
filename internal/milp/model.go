// Package milp provides a small abstract mixed-integer linear program
// representation and a pure Go solving engine behind a narrow interface.
package milp

import "math"

// Sense is the relational sense of a linear constraint.
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
	default:
		return "="
	}
}

// Variable is a decision variable with simple bounds. Binary variables are
// continuous in the relaxation and branched to {0,1} by the engine.
type Variable struct {
	Name   string
	Lower  float64
	Upper  float64
	Binary bool
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear constraint sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization MILP. It is a fully resolved specification: it owns
// variables, constraints and the objective but performs no solving itself.
// Build it once, then hand it to a Solver; the engine never mutates it.
type Model struct {
	vars   []Variable
	cons   []Constraint
	obj    []float64
	offset float64
}

func NewModel() *Model {
	return &Model{}
}

// AddVar declares a continuous variable and returns its index.
func (m *Model) AddVar(lower, upper float64, name string) int {
	m.vars = append(m.vars, Variable{Name: name, Lower: lower, Upper: upper})
	m.obj = append(m.obj, 0)
	return len(m.vars) - 1
}

// AddBinary declares a {0,1} variable and returns its index.
func (m *Model) AddBinary(name string) int {
	m.vars = append(m.vars, Variable{Name: name, Lower: 0, Upper: 1, Binary: true})
	m.obj = append(m.obj, 0)
	return len(m.vars) - 1
}

// AddConstraint appends a linear constraint. Terms are kept as given; callers
// are responsible for not referencing out-of-range variable indices.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.cons = append(m.cons, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// SetObjectiveCoef sets the minimization coefficient of variable v.
func (m *Model) SetObjectiveCoef(v int, c float64) {
	m.obj[v] = c
}

// AddObjectiveOffset adds a constant to the objective. Used for penalty terms
// of the form M*(1-z) whose constant part has no variable.
func (m *Model) AddObjectiveOffset(c float64) {
	m.offset += c
}

func (m *Model) NumVars() int        { return len(m.vars) }
func (m *Model) NumConstraints() int { return len(m.cons) }

func (m *Model) Var(i int) Variable { return m.vars[i] }

func (m *Model) ConstraintAt(i int) Constraint { return m.cons[i] }

func (m *Model) ObjectiveCoef(i int) float64 { return m.obj[i] }

func (m *Model) ObjectiveOffset() float64 { return m.offset }

// Objective evaluates the objective at the given assignment.
func (m *Model) Objective(x []float64) float64 {
	total := m.offset
	for i, c := range m.obj {
		if c != 0 && i < len(x) {
			total += c * x[i]
		}
	}
	return total
}

// Activity evaluates the left-hand side of constraint i at x.
func (m *Model) Activity(i int, x []float64) float64 {
	lhs := 0.0
	for _, t := range m.cons[i].Terms {
		lhs += t.Coef * x[t.Var]
	}
	return lhs
}

// Inf is a convenience upper bound for unbounded-above variables.
func Inf() float64 { return math.Inf(1) }
