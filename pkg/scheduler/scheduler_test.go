package scheduler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/roster"
	"github.com/arnavshah/roster-solver/pkg/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoster(t *testing.T, ds *models.Dataset) *roster.Roster {
	t.Helper()
	r, err := roster.New(ds)
	require.NoError(t, err)
	return r
}

func receptionDataset() *models.Dataset {
	return &models.Dataset{
		Roles: []string{"reception"},
		Availabilities: map[string]map[string]bool{
			"A": {"1(Mon)": true},
			"B": {"1(Mon)": true},
			"C": {"1(Mon)": false},
		},
		Capabilities: map[string]map[string]bool{
			"A": {"reception": false},
			"B": {"reception": true},
			"C": {"reception": true},
		},
		FullTime: map[string]bool{"B": true},
	}
}

func TestSolveDay_Reception(t *testing.T) {
	p := DefaultPolicy()
	p.FullTimeRoles = []string{"reception"}
	s := New(newRoster(t, receptionDataset()), WithPolicy(p))

	got, err := s.SolveDay(context.Background(), "1(Mon)", nil)
	require.NoError(t, err)

	want := models.DaySchedule{"reception": {"B"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func shortageDataset(withSentinel bool) *models.Dataset {
	ds := &models.Dataset{
		Roles: []string{"blood_draw"},
		Availabilities: map[string]map[string]bool{
			"E1": {"1(Mon)": true},
		},
		Capabilities: map[string]map[string]bool{
			"E1": {"blood_draw": true},
		},
		RequiredHeadcount: map[string]map[string]int{
			"Mon": {"blood_draw": 2},
		},
	}
	if withSentinel {
		ds.Availabilities["shortage"] = map[string]bool{"1(Mon)": true}
		ds.Capabilities["shortage"] = map[string]bool{"blood_draw": true}
		ds.Categories = map[string]models.Category{"shortage": models.CategoryShortage}
	}
	return ds
}

func TestSolveDay_InfeasibleWithoutShortage(t *testing.T) {
	s := New(newRoster(t, shortageDataset(false)))

	_, err := s.SolveDay(context.Background(), "1(Mon)", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInfeasible))

	var inf *InfeasibleError
	require.True(t, errors.As(err, &inf))
	assert.Equal(t, "1(Mon)", inf.Day)
}

func TestSolveDay_ShortageFillsMissingSlot(t *testing.T) {
	s := New(newRoster(t, shortageDataset(true)))

	got, err := s.SolveDay(context.Background(), "1(Mon)", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"E1", "shortage"}, got["blood_draw"])
}

func TestSolveDay_ShortageRepeatsPerSlot(t *testing.T) {
	ds := shortageDataset(true)
	ds.RequiredHeadcount["Mon"]["blood_draw"] = 3
	s := New(newRoster(t, ds))

	got, err := s.SolveDay(context.Background(), "1(Mon)", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"E1", "shortage", "shortage"}, got["blood_draw"])
}

func TestSolveDay_DefaultHeadcountIsOne(t *testing.T) {
	ds := &models.Dataset{
		Availabilities: map[string]map[string]bool{
			"a": {"1": true}, "b": {"1": true}, "c": {"1": true},
		},
		Capabilities: map[string]map[string]bool{
			"a": {"desk": true, "lab": true},
			"b": {"desk": true, "lab": true},
			"c": {"desk": true, "lab": true},
		},
	}
	s := New(newRoster(t, ds))

	got, err := s.SolveDay(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.Len(t, got["desk"], 1)
	assert.Len(t, got["lab"], 1)
	assert.NotEqual(t, got["desk"][0], got["lab"][0])
}

func TestSolveDay_MedicalPoolCappedAtFour(t *testing.T) {
	ds := &models.Dataset{
		Days:  []string{"1(Mon)"},
		Roles: []string{"blood_draw", "ecg"},
		Availabilities: map[string]map[string]bool{
			"medical":  {"1(Mon)": true},
			"shortage": {"1(Mon)": true},
		},
		Capabilities: map[string]map[string]bool{
			"medical":  {"blood_draw": true, "ecg": true},
			"shortage": {"blood_draw": true, "ecg": true},
		},
		RequiredHeadcount: map[string]map[string]int{
			"Mon": {"blood_draw": 4, "ecg": 2},
		},
		Categories: map[string]models.Category{
			"medical":  models.CategoryMedical,
			"shortage": models.CategoryShortage,
		},
	}
	s := New(newRoster(t, ds))

	got, err := s.SolveDay(context.Background(), "1(Mon)", nil)
	require.NoError(t, err)

	count := func(role, who string) int {
		n := 0
		for _, e := range got[role] {
			if e == who {
				n++
			}
		}
		return n
	}
	assert.Len(t, got["blood_draw"], 4)
	assert.Len(t, got["ecg"], 2)
	assert.Equal(t, 4, count("blood_draw", "medical")+count("ecg", "medical"))
	assert.Equal(t, 2, count("blood_draw", "shortage")+count("ecg", "shortage"))
}

func TestSolveDay_FullTimeCoverage(t *testing.T) {
	ds := &models.Dataset{
		Roles: []string{"reception"},
		Availabilities: map[string]map[string]bool{
			"part": {"1": true}, "full": {"1": true},
		},
		Capabilities: map[string]map[string]bool{
			"part": {"reception": true}, "full": {"reception": true},
		},
		FullTime: map[string]bool{"full": true},
		Weights:  map[string]float64{"part": 5, "full": 1},
	}
	p := DefaultPolicy()
	p.FullTimeRoles = []string{"reception", "not_a_role"}
	s := New(newRoster(t, ds), WithPolicy(p), WithObjective(FormWeighted))

	got, err := s.SolveDay(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, got["reception"])

	plain := New(newRoster(t, ds), WithObjective(FormWeighted))
	got, err = plain.SolveDay(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"part"}, got["reception"])
}

func TestSolveDay_UnknownDay(t *testing.T) {
	s := New(newRoster(t, receptionDataset()))
	_, err := s.SolveDay(context.Background(), "9(Sun)", nil)
	assert.ErrorIs(t, err, roster.ErrValidation)
}

// weekDataset is feasible on every day with several optimal schedules
func weekDataset() *models.Dataset {
	days := []string{"1(Mon)", "2(Tue)", "3(Wed)"}
	ds := &models.Dataset{
		Days:           days,
		Roles:          []string{"R1", "R2", "R3"},
		Availabilities: map[string]map[string]bool{},
		Capabilities:   map[string]map[string]bool{},
	}
	for i := 1; i <= 6; i++ {
		e := fmt.Sprintf("e%d", i)
		ds.Availabilities[e] = map[string]bool{}
		for _, d := range days {
			ds.Availabilities[e][d] = true
		}
		ds.Capabilities[e] = map[string]bool{"R1": true, "R2": true, "R3": true}
	}
	ds.Capabilities["e1"]["R1"] = false
	ds.Capabilities["e2"]["R2"] = false
	ds.Availabilities["e3"]["1(Mon)"] = false
	ds.Availabilities["e4"]["2(Tue)"] = false
	ds.Availabilities["e5"]["2(Tue)"] = false
	return ds
}

func TestRun_ScheduleInvariants(t *testing.T) {
	ds := weekDataset()
	r := newRoster(t, ds)
	s := New(r)
	seed := int64(3)

	entries, failures, err := s.Run(context.Background(), RunOptions{Trials: 2, Workers: 2, Seed: &seed})
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, entries, 6)

	for _, entry := range entries {
		seen := make(map[string]bool)
		for role, emps := range entry.Roles {
			n, err := r.RequiredHeadcount(entry.Day, role)
			require.NoError(t, err)
			assert.Len(t, emps, n, "%s %s", entry.Label, role)
			for _, e := range emps {
				assert.False(t, seen[e], "%s assigned twice on %s", e, entry.Label)
				seen[e] = true
				assert.True(t, ds.Availabilities[e][entry.Day], "%s unavailable on %s", e, entry.Day)
				assert.True(t, ds.Capabilities[e][role], "%s incompatible with %s", e, role)
			}
		}
	}
}

func TestRun_LabelsAndOrder(t *testing.T) {
	s := New(newRoster(t, weekDataset()))
	seed := int64(1)

	entries, _, err := s.Run(context.Background(), RunOptions{Trials: 2, Workers: 3, Seed: &seed})
	require.NoError(t, err)

	var labels []string
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{
		"1(Mon)#1", "1(Mon)#2",
		"2(Tue)#1", "2(Tue)#2",
		"3(Wed)#1", "3(Wed)#2",
	}, labels)

	single, _, err := s.Run(context.Background(), RunOptions{Days: []string{"2(Tue)"}})
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "2(Tue)", single[0].Label)
	assert.Equal(t, 1, single[0].Trial)
}

func TestRun_SameSeedSameSchedules(t *testing.T) {
	s := New(newRoster(t, weekDataset()))
	seed := int64(99)

	first, _, err := s.Run(context.Background(), RunOptions{Trials: 3, Workers: 3, Seed: &seed})
	require.NoError(t, err)
	second, _, err := s.Run(context.Background(), RunOptions{Trials: 3, Workers: 1, Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_FailedDayFallsBackToUnassigned(t *testing.T) {
	ds := shortageDataset(false)
	ds.Availabilities["E1"]["2(Tue)"] = true
	ds.RequiredHeadcount["Tue"] = map[string]int{"blood_draw": 1}
	s := New(newRoster(t, ds))

	entries, failures, err := s.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.DaySchedule{"blood_draw": {"unassigned"}}, entries[0].Roles)
	assert.Equal(t, models.DaySchedule{"blood_draw": {"E1"}}, entries[1].Roles)
	require.Len(t, failures, 1)
	assert.Equal(t, "1(Mon)", failures[0].Day)
	assert.Contains(t, failures[0].Reason, "no feasible schedule")
}

func TestRun_UnknownDayFailsFast(t *testing.T) {
	s := New(newRoster(t, weekDataset()))
	_, _, err := s.Run(context.Background(), RunOptions{Days: []string{"1(Mon)", "8(Mon)"}})
	assert.ErrorIs(t, err, roster.ErrValidation)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(newRoster(t, weekDataset()))

	_, _, err := s.Run(ctx, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

type countingRecorder struct {
	trials map[string]int
	days   int
	failed int
}

func (c *countingRecorder) ObserveTrial(outcome string, _ time.Duration) { c.trials[outcome]++ }

func (c *countingRecorder) ObserveDay(failed bool) {
	c.days++
	if failed {
		c.failed++
	}
}

func TestRun_RecordsOutcomes(t *testing.T) {
	ds := shortageDataset(false)
	ds.Availabilities["E1"]["2(Tue)"] = true
	ds.RequiredHeadcount["Tue"] = map[string]int{"blood_draw": 1}
	rec := &countingRecorder{trials: map[string]int{}}
	s := New(newRoster(t, ds), WithRecorder(rec))

	_, _, err := s.Run(context.Background(), RunOptions{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.trials["optimal"])
	assert.Equal(t, 1, rec.trials["infeasible"])
	assert.Equal(t, 2, rec.days)
	assert.Equal(t, 1, rec.failed)
}

// placeholderDataset has two roles on one day. Every listed employee is
// available and able to fill both; placeholders are tagged by category.
func placeholderDataset(staff []string, pools ...models.Category) *models.Dataset {
	ds := &models.Dataset{
		Roles:          []string{"reception", "bp"},
		Availabilities: map[string]map[string]bool{},
		Capabilities:   map[string]map[string]bool{},
		Categories:     map[string]models.Category{},
	}
	add := func(id string) {
		ds.Availabilities[id] = map[string]bool{"1(Mon)": true}
		ds.Capabilities[id] = map[string]bool{"reception": true, "bp": true}
	}
	for _, e := range staff {
		add(e)
	}
	for _, c := range pools {
		add(string(c))
		ds.Categories[string(c)] = c
	}
	return ds
}

func TestSolveDay_PenaltyPrefersRealStaff(t *testing.T) {
	allPools := []models.Category{
		models.CategoryUnneeded,
		models.CategoryMedical,
		models.CategoryTempStaff,
		models.CategoryShortage,
	}
	cases := []struct {
		name  string
		staff []string
		pools []models.Category
		want  []string
	}{
		{"staff fill every role", []string{"A", "B"}, allPools, []string{"A", "B"}},
		{"unneeded covers the gap", []string{"A"}, allPools, []string{"A", "unneeded"}},
		{"unneeded before medical and temp", nil, allPools, []string{"unneeded", "unneeded"}},
		{"medical before shortage", nil, []models.Category{models.CategoryMedical, models.CategoryShortage}, []string{"medical", "medical"}},
		{"temp staff once before shortage", nil, []models.Category{models.CategoryTempStaff, models.CategoryShortage}, []string{"temp_staff", "shortage"}},
		{"shortage last", nil, []models.Category{models.CategoryShortage}, []string{"shortage", "shortage"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(newRoster(t, placeholderDataset(tc.staff, tc.pools...)))

			got, err := s.SolveDay(context.Background(), "1(Mon)", nil)
			require.NoError(t, err)

			var filled []string
			for _, role := range []string{"reception", "bp"} {
				require.Len(t, got[role], 1, role)
				filled = append(filled, got[role]...)
			}
			assert.ElementsMatch(t, tc.want, filled)
		})
	}
}

type blockingBackend struct{}

func (blockingBackend) Name() string { return "blocking" }

func (blockingBackend) Solve(ctx context.Context, _ *solver.Model, _ solver.Options) (*solver.Result, error) {
	<-ctx.Done()
	return &solver.Result{Status: solver.StatusError}, ctx.Err()
}

func TestRun_DayTimeoutFallsBackToUnassigned(t *testing.T) {
	s := New(newRoster(t, shortageDataset(true)),
		WithBackend(blockingBackend{}),
		WithDayTimeout(10*time.Millisecond),
	)

	entries, failures, err := s.Run(context.Background(), RunOptions{Trials: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, models.DaySchedule{"blood_draw": {"unassigned"}}, e.Roles)
	}
	require.Len(t, failures, 2)
	for _, f := range failures {
		assert.Equal(t, "1(Mon)", f.Day)
		assert.Contains(t, f.Reason, "deadline exceeded")
	}
}

func TestRun_CallerDeadlineStillFailsRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	s := New(newRoster(t, shortageDataset(true)),
		WithBackend(blockingBackend{}),
		WithDayTimeout(time.Minute),
	)

	_, _, err := s.Run(ctx, RunOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the caller's deadline to fail the run, got %v", err)
	}
}
