package solver

import (
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable
type VarKind int

const (
	Continuous VarKind = iota
	Binary
	Integer
)

func (k VarKind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Integer:
		return "integer"
	}
	return "continuous"
}

// Sense is the optimization direction
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Var is one column of the model
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is a coefficient on a variable inside a row
type Term struct {
	Var  int
	Coef float64
}

// Row is a linear constraint Lower <= sum(terms) <= Upper. Use math.Inf for
// a missing side.
type Row struct {
	Name  string
	Terms []Term
	Lower float64
	Upper float64
}

// Model is a mixed-integer linear program. It is built by one owner and
// only read by backends.
type Model struct {
	Name  string
	Sense Sense

	vars  []Var
	obj   []float64
	rows  []Row
	names map[string]int
}

// NewModel creates an empty model
func NewModel(name string, sense Sense) *Model {
	return &Model{Name: name, Sense: sense, names: make(map[string]int)}
}

// AddVar appends a variable and returns its index. Binary variables are
// clamped to [0, 1].
func (m *Model) AddVar(name string, kind VarKind, lower, upper float64) (int, error) {
	if _, dup := m.names[name]; dup {
		return -1, fmt.Errorf("solver: duplicate variable %q", name)
	}
	if kind == Binary {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	if math.IsInf(lower, 0) || math.IsNaN(lower) || math.IsNaN(upper) {
		return -1, fmt.Errorf("solver: variable %q needs a finite lower bound", name)
	}
	if lower > upper {
		return -1, fmt.Errorf("solver: variable %q has empty domain [%g, %g]", name, lower, upper)
	}
	m.names[name] = len(m.vars)
	m.vars = append(m.vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper})
	m.obj = append(m.obj, 0)
	return len(m.vars) - 1, nil
}

// SetUpper tightens a variable's upper bound
func (m *Model) SetUpper(v int, upper float64) {
	if upper < m.vars[v].Upper {
		m.vars[v].Upper = math.Max(upper, m.vars[v].Lower)
	}
}

// SetObjCoef sets the objective coefficient of a variable
func (m *Model) SetObjCoef(v int, coef float64) {
	m.obj[v] = coef
}

// AddRow appends a constraint and returns its index
func (m *Model) AddRow(name string, terms []Term, lower, upper float64) (int, error) {
	if lower > upper {
		return -1, fmt.Errorf("solver: row %q has empty range [%g, %g]", name, lower, upper)
	}
	for _, t := range terms {
		if t.Var < 0 || t.Var >= len(m.vars) {
			return -1, fmt.Errorf("solver: row %q references unknown variable %d", name, t.Var)
		}
	}
	m.rows = append(m.rows, Row{Name: name, Terms: terms, Lower: lower, Upper: upper})
	return len(m.rows) - 1, nil
}

// AddEq adds sum(terms) == rhs
func (m *Model) AddEq(name string, terms []Term, rhs float64) (int, error) {
	return m.AddRow(name, terms, rhs, rhs)
}

// AddLE adds sum(terms) <= rhs
func (m *Model) AddLE(name string, terms []Term, rhs float64) (int, error) {
	return m.AddRow(name, terms, math.Inf(-1), rhs)
}

// AddGE adds sum(terms) >= rhs
func (m *Model) AddGE(name string, terms []Term, rhs float64) (int, error) {
	return m.AddRow(name, terms, rhs, math.Inf(1))
}

func (m *Model) NumVars() int { return len(m.vars) }
func (m *Model) NumRows() int { return len(m.rows) }

// Var returns variable v
func (m *Model) Var(v int) Var { return m.vars[v] }

// Row returns row i
func (m *Model) Row(i int) Row { return m.rows[i] }

// ObjCoef returns the objective coefficient of variable v
func (m *Model) ObjCoef(v int) float64 { return m.obj[v] }

// Lookup finds a variable by name
func (m *Model) Lookup(name string) (int, bool) {
	v, ok := m.names[name]
	return v, ok
}

// ObjectiveValue evaluates the objective at x
func (m *Model) ObjectiveValue(x []float64) float64 {
	var sum float64
	for j, c := range m.obj {
		sum += c * x[j]
	}
	return sum
}
