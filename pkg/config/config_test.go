package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "rosterd.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "native", cfg.Solver.Backend)
	assert.Equal(t, 1, cfg.Solver.Trials)
	assert.Equal(t, models.CategoryShortage, cfg.Policy.Sentinels.Lookup("shortage"))
	assert.Equal(t, "unassigned", cfg.Policy.UnassignedLabel)
}

func TestLoad_File(t *testing.T) {
	p := writeFile(t, `
server:
  port: "9090"
solver:
  trials: 4
  objective: weighted
  time_limit: 5s
  seed: 7
policy:
  role_caps:
    medical: 2
  fulltime_roles: [reception]
  sentinels:
    shortage: [gap]
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Solver.Trials)
	assert.Equal(t, "weighted", cfg.Solver.Objective)
	assert.Equal(t, 5*time.Second, cfg.Solver.TimeLimit)
	require.NotNil(t, cfg.Solver.Seed)
	assert.Equal(t, int64(7), *cfg.Solver.Seed)
	assert.Equal(t, 2, cfg.Policy.RoleCaps[models.CategoryMedical])
	assert.Equal(t, []string{"reception"}, cfg.Policy.FullTimeRoles)
	assert.Equal(t, models.CategoryShortage, cfg.Policy.Sentinels.Lookup("gap"))
	// keys not in the file keep their defaults
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "server:\n  port: \"9090\"\n")
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://localhost/roster")
	t.Setenv("SOLVER_TRIALS", "3")
	t.Setenv("SOLVER_TIME_LIMIT", "1m")
	t.Setenv("SOLVER_DAY_TIMEOUT", "90s")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/roster", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Solver.Trials)
	assert.Equal(t, time.Minute, cfg.Solver.TimeLimit)
	assert.Equal(t, 90*time.Second, cfg.Solver.DayTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeFile(t, "solver: [oops"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "solver:\n  objective: cheapest\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "policy:\n  penalties:\n    intern: 3\n"))
	assert.Error(t, err)

	t.Setenv("SOLVER_TRIALS", "many")
	_, err = Load(writeFile(t, ""))
	assert.Error(t, err)
}

func TestLoad_MissingDefaultPathIsFine(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Solver, cfg.Solver)
}

func TestDefault_TempStaffSpellings(t *testing.T) {
	s := Default().Policy.Sentinels
	for _, id := range []string{"temp_staff", "temp-staff"} {
		if got := s.Lookup(id); got != models.CategoryTempStaff {
			t.Errorf("Expected %q to be temp staff, got %q", id, got)
		}
	}
	assert.Equal(t, models.CategoryNormal, s.Lookup("temp staff"))
}

func TestValidateServer(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.ValidateServer(), ErrMissingSecret, "defaults carry no secrets")

	cfg.Auth.JWTSecret = "jwt"
	assert.ErrorIs(t, cfg.ValidateServer(), ErrMissingSecret)

	cfg.Auth.APIMasterSecret = "master"
	assert.NoError(t, cfg.ValidateServer())

	cfg.Auth.JWTSecret = ""
	assert.ErrorIs(t, cfg.ValidateServer(), ErrMissingSecret)
}
