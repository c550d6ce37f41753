package scheduler

import (
	"errors"
	"fmt"
	"math"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/solver"
)

// ErrNotSolved is returned by Extract for a result that is not optimal
var ErrNotSolved = errors.New("scheduler: result is not optimal")

// Extract reads a solved day model back into role -> filled slots. Binary
// cells contribute their employee when set; count cells contribute the
// employee once per unit. Every role of the day is present, possibly empty.
func Extract(dm *DayModel, res *solver.Result) (models.DaySchedule, error) {
	if res == nil || res.Status != solver.StatusOptimal {
		return nil, ErrNotSolved
	}
	out := make(models.DaySchedule, len(dm.Roles))
	for _, r := range dm.Roles {
		out[r] = []string{}
	}
	for j, cell := range dm.Cells {
		v := dm.Model.Var(j)
		val, ok := res.Values[v.Name]
		if !ok {
			return nil, fmt.Errorf("scheduler: no value for %s", v.Name)
		}
		employee, role, err := DecodeVarName(v.Name)
		if err != nil {
			return nil, err
		}
		if employee != cell.Employee || role != cell.Role {
			return nil, fmt.Errorf("scheduler: %s decodes to (%q, %q), built for (%q, %q)",
				v.Name, employee, role, cell.Employee, cell.Role)
		}
		n := int(math.Round(val))
		if v.Kind == solver.Binary && n > 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out[role] = append(out[role], employee)
		}
	}
	return out, nil
}
