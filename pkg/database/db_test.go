package database

import (
	"testing"

	"github.com/arnavshah/roster-solver/pkg/config"
	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	return db
}

func TestRecordUsage_Accumulates(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, RecordUsage(db, 1, 5, 10))
	require.NoError(t, RecordUsage(db, 1, 2, 3))
	require.NoError(t, RecordUsage(db, 2, 1, 1))

	var rows []APIUsage
	require.NoError(t, db.Where("key_id = ?", 1).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].RequestCount)
	assert.Equal(t, 7, rows[0].TotalDays)
	assert.Equal(t, 13, rows[0].TotalEmployees)

	mine, err := SumUsage(db, 1)
	require.NoError(t, err)
	assert.Equal(t, UsageTotals{Requests: 2, Days: 7, Employees: 13}, mine)

	all, err := SumUsage(db, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Requests)
}

func TestSaveAndGetRun(t *testing.T) {
	db := openTestDB(t)

	run := &ScheduleRun{KeyID: 4, Source: "api", Objective: "penalty", Days: 1, Trials: 1, Employees: 2}
	payload := RunPayload{
		Schedule: []models.ScheduleEntry{{
			Label: "1(Mon)", Day: "1(Mon)", Trial: 1,
			Roles: models.DaySchedule{"reception": {"B"}},
		}},
		Failures: []models.DayFailure{{Day: "1(Mon)", Trial: 1, Reason: "infeasible"}},
	}
	require.NoError(t, SaveRun(db, run, payload))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, 1, run.Failures)

	got, body, err := GetRun(db, run.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "api", got.Source)
	assert.Equal(t, payload, *body)

	_, _, err = GetRun(db, run.ID, 5)
	assert.ErrorIs(t, err, ErrRunNotFound, "runs are scoped to their key")

	_, _, err = GetRun(db, "nope", 0)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	for _, src := range []string{"first", "second", "third"} {
		require.NoError(t, SaveRun(db, &ScheduleRun{Source: src}, RunPayload{}))
	}

	runs, err := ListRuns(db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	if !runs[0].CreatedAt.After(runs[1].CreatedAt) && !runs[0].CreatedAt.Equal(runs[1].CreatedAt) {
		t.Errorf("runs not ordered newest first: %v then %v", runs[0].CreatedAt, runs[1].CreatedAt)
	}
}
