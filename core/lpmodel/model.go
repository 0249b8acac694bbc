package lpmodel

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownVariable is returned when a handle does not belong to the model.
var ErrUnknownVariable = errors.New("unknown variable")

// VarID is a typed handle into the variable arena of a Model.
type VarID int

// NoVar marks an absent handle, e.g. the capacity of a fixed branch.
const NoVar VarID = -1

// Valid reports whether the handle refers to a variable.
func (v VarID) Valid() bool { return v >= 0 }

// VarKind distinguishes continuous from binary variables.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// String returns a human-readable representation of the kind.
func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Variable is one decision variable of the model.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64 // +Inf when unbounded
	Cost  float64 // objective coefficient (minimisation)
}

// Sense is the relation of a linear constraint.
type Sense int

const (
	Equal Sense = iota
	LessEqual
	GreaterEqual
)

// String returns the operator of the sense.
func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "=="
	}
}

// Term is coefficient x variable.
type Term struct {
	Var  VarID
	Coef float64
}

// Constraint is sum(terms) <sense> RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Collector receives emitted constraints.
type Collector interface {
	Add(c Constraint) error
}

// Model is a minimal linear/mixed-integer model: a variable arena plus a list
// of constraints. It is not safe for concurrent mutation.
type Model struct {
	vars        []Variable
	constraints []Constraint
}

// New returns an empty model.
func New() *Model {
	return &Model{}
}

// AddVariable appends a variable and returns its handle.
func (m *Model) AddVariable(v Variable) VarID {
	if v.Kind == Binary {
		v.Lower = math.Max(v.Lower, 0)
		if v.Upper == 0 || v.Upper > 1 {
			v.Upper = 1
		}
	}
	m.vars = append(m.vars, v)
	return VarID(len(m.vars) - 1)
}

// Continuous adds a continuous variable within [lower, upper].
func (m *Model) Continuous(name string, lower, upper float64) VarID {
	return m.AddVariable(Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
}

// Binary adds a 0/1 variable.
func (m *Model) Binary(name string) VarID {
	return m.AddVariable(Variable{Name: name, Kind: Binary, Upper: 1})
}

// Variable returns the variable behind a handle.
func (m *Model) Variable(id VarID) (Variable, error) {
	if id < 0 || int(id) >= len(m.vars) {
		return Variable{}, fmt.Errorf("%w: %d", ErrUnknownVariable, id)
	}
	return m.vars[id], nil
}

// SetCost sets the objective coefficient of a variable.
func (m *Model) SetCost(id VarID, cost float64) error {
	if id < 0 || int(id) >= len(m.vars) {
		return fmt.Errorf("%w: %d", ErrUnknownVariable, id)
	}
	m.vars[id].Cost = cost
	return nil
}

// Fix pins a variable to a value by collapsing its bounds.
func (m *Model) Fix(id VarID, value float64) error {
	if id < 0 || int(id) >= len(m.vars) {
		return fmt.Errorf("%w: %d", ErrUnknownVariable, id)
	}
	m.vars[id].Lower = value
	m.vars[id].Upper = value
	return nil
}

// Add appends a constraint after checking its handles. Zero coefficients are
// dropped.
func (m *Model) Add(c Constraint) error {
	terms := make([]Term, 0, len(c.Terms))
	for _, t := range c.Terms {
		if t.Var < 0 || int(t.Var) >= len(m.vars) {
			return fmt.Errorf("constraint %s: %w: %d", c.Name, ErrUnknownVariable, t.Var)
		}
		if t.Coef != 0 {
			terms = append(terms, t)
		}
	}
	c.Terms = terms
	m.constraints = append(m.constraints, c)
	return nil
}

// Variables returns a copy of the variable arena.
func (m *Model) Variables() []Variable {
	out := make([]Variable, len(m.vars))
	copy(out, m.vars)
	return out
}

// Constraints returns a copy of the constraint list.
func (m *Model) Constraints() []Constraint {
	out := make([]Constraint, len(m.constraints))
	copy(out, m.constraints)
	return out
}

// NumVariables returns the size of the arena.
func (m *Model) NumVariables() int { return len(m.vars) }

// Format renders a constraint with variable names, e.g.
// "chp-fixed-power-ratio[0]: 0.48 p[chp_boiler,0] - 0.48 p[chp_generator,0] == 0".
func (m *Model) Format(c Constraint) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteString(": ")
	if len(c.Terms) == 0 {
		sb.WriteString("0")
	}
	for i, t := range c.Terms {
		name := fmt.Sprintf("x%d", t.Var)
		if t.Var >= 0 && int(t.Var) < len(m.vars) {
			name = m.vars[t.Var].Name
		}
		coef := t.Coef
		switch {
		case i == 0 && coef < 0:
			sb.WriteString("-")
			coef = -coef
		case i > 0 && coef < 0:
			sb.WriteString(" - ")
			coef = -coef
		case i > 0:
			sb.WriteString(" + ")
		}
		if coef != 1 {
			fmt.Fprintf(&sb, "%.6g ", coef)
		}
		sb.WriteString(name)
	}
	fmt.Fprintf(&sb, " %s %.6g", c.Sense, c.RHS)
	return sb.String()
}

// Evaluate returns the left-hand side of c for the given assignment.
func Evaluate(c Constraint, x []float64) float64 {
	var lhs float64
	for _, t := range c.Terms {
		lhs += t.Coef * x[t.Var]
	}
	return lhs
}

// Satisfied reports whether x satisfies c within tol.
func Satisfied(c Constraint, x []float64, tol float64) bool {
	lhs := Evaluate(c, x)
	switch c.Sense {
	case LessEqual:
		return lhs <= c.RHS+tol
	case GreaterEqual:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}
