package scheduler

import (
	"fmt"

	"github.com/arnavshah/roster-solver/pkg/models"
)

// ObjectiveForm selects how the objective is built
type ObjectiveForm string

const (
	// FormPenalty minimizes per-category penalties
	FormPenalty ObjectiveForm = "penalty"
	// FormWeighted maximizes the per-employee weights
	FormWeighted ObjectiveForm = "weighted"
)

// ParseObjectiveForm accepts "penalty", "weighted" or "" (penalty)
func ParseObjectiveForm(s string) (ObjectiveForm, error) {
	switch ObjectiveForm(s) {
	case "", FormPenalty:
		return FormPenalty, nil
	case FormWeighted:
		return FormWeighted, nil
	}
	return "", fmt.Errorf("unknown objective form %q", s)
}

// Uncapped in RoleCaps exempts a category from the roles-per-day limit
const Uncapped = -1

// Policy holds the tunable parts of the model. Zero-valued maps fall back to
// DefaultPolicy entry by entry.
type Policy struct {
	// RoleCaps limits how many role slots one employee of a category may
	// fill on one day
	RoleCaps map[models.Category]int `yaml:"role_caps" json:"role_caps"`
	// Penalties are the objective coefficients of the penalty form
	Penalties map[models.Category]float64 `yaml:"penalties" json:"penalties"`
	// FullTimeRoles must have at least one full-time employee whenever they
	// are staffed
	FullTimeRoles []string `yaml:"fulltime_roles" json:"fulltime_roles"`
	// UnassignedLabel fills every role of a day that could not be solved
	UnassignedLabel string `yaml:"unassigned_label" json:"unassigned_label"`
}

// DefaultPolicy returns the stock caps and penalties
func DefaultPolicy() Policy {
	return Policy{
		RoleCaps: map[models.Category]int{
			models.CategoryNormal:    1,
			models.CategoryTempStaff: 1,
			models.CategoryMedical:   4,
			models.CategoryShortage:  Uncapped,
			models.CategoryUnneeded:  Uncapped,
		},
		Penalties: map[models.Category]float64{
			models.CategoryNormal:    0,
			models.CategoryShortage:  100,
			models.CategoryMedical:   10,
			models.CategoryTempStaff: 10,
			models.CategoryUnneeded:  1,
		},
		UnassignedLabel: "unassigned",
	}
}

// RoleCap returns the cap for a category and whether one applies
func (p Policy) RoleCap(c models.Category) (int, bool) {
	n, ok := p.RoleCaps[c]
	if !ok {
		n = DefaultPolicy().RoleCaps[c]
	}
	return n, n >= 0
}

// Penalty returns the penalty-form coefficient for a category
func (p Policy) Penalty(c models.Category) float64 {
	if v, ok := p.Penalties[c]; ok {
		return v
	}
	return DefaultPolicy().Penalties[c]
}

// Unassigned returns the fallback schedule for a day: every role holds the
// unassigned label once
func (p Policy) Unassigned(roles []string) models.DaySchedule {
	label := p.UnassignedLabel
	if label == "" {
		label = DefaultPolicy().UnassignedLabel
	}
	out := make(models.DaySchedule, len(roles))
	for _, r := range roles {
		out[r] = []string{label}
	}
	return out
}
