package scheduler

import (
	"fmt"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/roster"
	"github.com/arnavshah/roster-solver/pkg/solver"
	"go.uber.org/zap"
)

// Cell is the (employee, role) pair behind one decision variable
type Cell struct {
	Employee string
	Role     string
}

// DayModel is the model of one day plus what is needed to read it back
type DayModel struct {
	Day   string
	Form  ObjectiveForm
	Model *solver.Model
	Roles []string
	Cells []Cell // indexed like the model's variables
}

// Builder turns a roster into one model per day
type Builder struct {
	roster        *roster.Roster
	policy        Policy
	logger        *zap.Logger
	fullTimeRoles []string
}

// NewBuilder creates a builder. Full-time roles that the roster does not
// define are logged and ignored.
func NewBuilder(r *roster.Roster, p Policy, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make(map[string]bool)
	for _, role := range r.Roles() {
		known[role] = true
	}
	b := &Builder{roster: r, policy: p, logger: logger}
	for _, role := range p.FullTimeRoles {
		if !known[role] {
			logger.Warn("full-time role not in roster, skipping", zap.String("role", role))
			continue
		}
		b.fullTimeRoles = append(b.fullTimeRoles, role)
	}
	return b
}

// Build creates the model for one day: one variable per (employee, role),
// headcount equalities, availability and compatibility bounds, per-category
// role caps and full-time coverage, plus the objective.
func (b *Builder) Build(day string, form ObjectiveForm) (*DayModel, error) {
	if !b.roster.HasDay(day) {
		return nil, fmt.Errorf("%w: unknown day %q", roster.ErrValidation, day)
	}
	sense := solver.Minimize
	switch form {
	case FormPenalty:
	case FormWeighted:
		sense = solver.Maximize
	default:
		return nil, fmt.Errorf("%w: unknown objective form %q", roster.ErrValidation, form)
	}

	employees := b.roster.Employees()
	roles := b.roster.Roles()
	headcount := make(map[string]int, len(roles))
	for _, r := range roles {
		n, err := b.roster.RequiredHeadcount(day, r)
		if err != nil {
			return nil, err
		}
		headcount[r] = n
	}

	dm := &DayModel{
		Day:   day,
		Form:  form,
		Model: solver.NewModel("day "+day, sense),
		Roles: roles,
	}
	m := dm.Model

	// x[e][r] -> variable index
	x := make(map[string]map[string]int, len(employees))
	for _, e := range employees {
		x[e] = make(map[string]int, len(roles))
		cat := b.roster.Category(e)
		kind := solver.Binary
		if cat.CountsSlots() {
			kind = solver.Integer
		}
		available := b.roster.IsAvailable(e, day)
		coef := b.coefficient(form, e, cat)
		for _, r := range roles {
			upper := 1.0
			if kind == solver.Integer {
				upper = float64(headcount[r])
			}
			if !available || !b.roster.IsCompatible(e, r) {
				upper = 0
			}
			v, err := m.AddVar(EncodeVarName(e, r), kind, 0, upper)
			if err != nil {
				return nil, err
			}
			m.SetObjCoef(v, coef)
			x[e][r] = v
			dm.Cells = append(dm.Cells, Cell{Employee: e, Role: r})
		}
	}

	for _, r := range roles {
		terms := make([]solver.Term, 0, len(employees))
		for _, e := range employees {
			terms = append(terms, solver.Term{Var: x[e][r], Coef: 1})
		}
		if _, err := m.AddEq("headcount|"+r, terms, float64(headcount[r])); err != nil {
			return nil, err
		}
	}

	for _, e := range employees {
		limit, capped := b.policy.RoleCap(b.roster.Category(e))
		if !capped {
			continue
		}
		terms := make([]solver.Term, 0, len(roles))
		for _, r := range roles {
			terms = append(terms, solver.Term{Var: x[e][r], Coef: 1})
		}
		if _, err := m.AddLE("cap|"+e, terms, float64(limit)); err != nil {
			return nil, err
		}
	}

	for _, r := range b.fullTimeRoles {
		if headcount[r] == 0 {
			continue
		}
		var terms []solver.Term
		for _, e := range employees {
			if b.roster.IsFullTime(e) {
				terms = append(terms, solver.Term{Var: x[e][r], Coef: 1})
			}
		}
		if _, err := m.AddGE("fulltime|"+r, terms, 1); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("model built",
		zap.String("day", day),
		zap.String("form", string(form)),
		zap.Int("vars", m.NumVars()),
		zap.Int("rows", m.NumRows()),
	)
	return dm, nil
}

// coefficient is the objective weight of every variable of one employee
func (b *Builder) coefficient(form ObjectiveForm, employee string, cat models.Category) float64 {
	if form == FormWeighted {
		return b.roster.Weight(employee)
	}
	return b.policy.Penalty(cat)
}
