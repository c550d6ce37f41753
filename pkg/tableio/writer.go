package tableio

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/arnavshah/roster-solver/pkg/models"
)

// WriteSchedule writes one row per schedule entry: the label, then one cell
// per role. Employees sharing a cell are joined by ", " in descending weight
// order.
func WriteSchedule(w io.Writer, entries []models.ScheduleEntry, roles []string, weights map[string]float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Day"}, roles...)); err != nil {
		return err
	}
	for _, e := range entries {
		record := make([]string, 0, len(roles)+1)
		record = append(record, e.Label)
		for _, role := range roles {
			emps := append([]string(nil), e.Roles[role]...)
			sort.SliceStable(emps, func(i, j int) bool {
				return weights[emps[i]] > weights[emps[j]]
			})
			record = append(record, strings.Join(emps, ", "))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
