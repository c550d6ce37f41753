package roster

import (
	"errors"
	"testing"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func baseDataset() *models.Dataset {
	return &models.Dataset{
		Availabilities: map[string]map[string]bool{
			"sato":     {"2(Tue)": true, "1(Mon)": false},
			"tanaka":   {"2(Tue)": true, "1(Mon)": true},
			"shortage": {"2(Tue)": true, "1(Mon)": true},
		},
		Capabilities: map[string]map[string]bool{
			"sato":     {"reception": true, "blood_draw": false},
			"tanaka":   {"reception": true, "blood_draw": true},
			"shortage": {"reception": true, "blood_draw": true},
		},
		FullTime: map[string]bool{"tanaka": true},
		Weights:  map[string]float64{"sato": 3},
		RequiredHeadcount: map[string]map[string]int{
			"Mon": {"blood_draw": 4},
			"Tue": {},
		},
	}
}

func TestNew_Accessors(t *testing.T) {
	sentinels := models.Sentinels{models.CategoryShortage: {"shortage"}}
	r, err := New(baseDataset(), WithSentinels(sentinels))
	require.NoError(t, err)

	assert.Equal(t, []string{"sato", "shortage", "tanaka"}, r.Employees())
	assert.Equal(t, []string{"blood_draw", "reception"}, r.Roles())
	assert.Equal(t, []string{"1(Mon)", "2(Tue)"}, r.Days())

	assert.False(t, r.IsAvailable("sato", "1(Mon)"))
	assert.True(t, r.IsAvailable("sato", "2(Tue)"))
	assert.False(t, r.IsCompatible("sato", "blood_draw"))
	assert.True(t, r.IsFullTime("tanaka"))
	assert.False(t, r.IsFullTime("sato"))
	assert.Equal(t, 3.0, r.Weight("sato"))
	assert.Equal(t, 0.0, r.Weight("tanaka"))
	assert.Equal(t, models.CategoryShortage, r.Category("shortage"))
	assert.Equal(t, models.CategoryNormal, r.Category("tanaka"))
	assert.Equal(t, "Mon", r.Weekday("1(Mon)"))

	n, err := r.RequiredHeadcount("1(Mon)", "blood_draw")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = r.RequiredHeadcount("2(Tue)", "blood_draw")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.RequiredHeadcount("3(Wed)", "blood_draw")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = r.RequiredHeadcount("1(Mon)", "xray")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNew_ExplicitCategoryWins(t *testing.T) {
	ds := baseDataset()
	ds.Categories = map[string]models.Category{"shortage": models.CategoryUnneeded}
	r, err := New(ds, WithSentinels(models.Sentinels{models.CategoryShortage: {"shortage"}}))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryUnneeded, r.Category("shortage"))
}

func TestNew_SentinelMatchIsExact(t *testing.T) {
	ds := baseDataset()
	ds.Availabilities["shortage_2"] = ds.Availabilities["tanaka"]
	ds.Capabilities["shortage_2"] = ds.Capabilities["tanaka"]
	r, err := New(ds, WithSentinels(models.Sentinels{models.CategoryShortage: {"shortage"}}))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNormal, r.Category("shortage_2"))
}

func TestNew_ValidationErrors(t *testing.T) {
	cases := map[string]func(ds *models.Dataset){
		"empty availability": func(ds *models.Dataset) {
			ds.Availabilities = map[string]map[string]bool{}
		},
		"mismatched role set": func(ds *models.Dataset) {
			ds.Capabilities["sato"] = map[string]bool{"reception": true}
		},
		"unknown role in capabilities": func(ds *models.Dataset) {
			ds.Capabilities["sato"] = map[string]bool{"reception": true, "xray": true}
		},
		"employee without capabilities": func(ds *models.Dataset) {
			delete(ds.Capabilities, "sato")
		},
		"employee without availability": func(ds *models.Dataset) {
			delete(ds.Availabilities, "sato")
		},
		"bad category": func(ds *models.Dataset) {
			ds.Categories = map[string]models.Category{"sato": "manager"}
		},
		"category for unknown employee": func(ds *models.Dataset) {
			ds.Categories = map[string]models.Category{"nobody": models.CategoryMedical}
		},
		"negative headcount": func(ds *models.Dataset) {
			ds.RequiredHeadcount["Mon"]["reception"] = -1
		},
		"headcount for unknown role": func(ds *models.Dataset) {
			ds.RequiredHeadcount["Mon"]["xray"] = 1
		},
		"unknown weekday token": func(ds *models.Dataset) {
			delete(ds.RequiredHeadcount, "Tue")
		},
		"unparseable day label": func(ds *models.Dataset) {
			for _, row := range ds.Availabilities {
				row["3(Wed"] = true
			}
		},
		"listed day missing": func(ds *models.Dataset) {
			ds.Days = []string{"1(Mon)", "9(Sun)"}
		},
		"duplicate role": func(ds *models.Dataset) {
			ds.Roles = []string{"reception", "reception"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ds := baseDataset()
			mutate(ds)
			_, err := New(ds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestNew_NilDataset(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNew_MissingAvailabilityWarnsOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ds := baseDataset()
	delete(ds.Availabilities["sato"], "1(Mon)")
	delete(ds.Availabilities["tanaka"], "2(Tue)")

	r, err := New(ds, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.False(t, r.IsAvailable("sato", "1(Mon)"))
	assert.False(t, r.IsAvailable("tanaka", "2(Tue)"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["count"])
}

func TestNew_DaysKeepDatasetOrder(t *testing.T) {
	ds := baseDataset()
	ds.Days = []string{"2(Tue)", "1(Mon)"}
	ds.Roles = []string{"reception", "blood_draw"}
	r, err := New(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"2(Tue)", "1(Mon)"}, r.Days())
	assert.Equal(t, []string{"reception", "blood_draw"}, r.Roles())
}
