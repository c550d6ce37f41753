package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/scheduler"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists
const DefaultPath = "configs/rosterd.yaml"

// Config is the full service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Solver   SolverConfig   `yaml:"solver"`
	Policy   PolicyConfig   `yaml:"policy"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// DatabaseConfig picks Postgres when URL is set, SQLite at Path otherwise
type DatabaseConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	APIMasterSecret  string        `yaml:"api_master_secret"`
	AdminUsername    string        `yaml:"admin_username"`
	AdminPassword    string        `yaml:"admin_password"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	DefaultRateLimit int           `yaml:"default_rate_limit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SolverConfig struct {
	Backend    string        `yaml:"backend"`
	Objective  string        `yaml:"objective"`
	Trials     int           `yaml:"trials"`
	Workers    int           `yaml:"workers"`
	TimeLimit  time.Duration `yaml:"time_limit"`
	// DayTimeout bounds all trials of one day, unbounded when zero
	DayTimeout time.Duration `yaml:"day_timeout"`
	Seed       *int64        `yaml:"seed"`
	Verbose    bool          `yaml:"verbose"`
}

// PolicyConfig is the scheduling policy plus the identifiers that mark
// placeholder employees
type PolicyConfig struct {
	scheduler.Policy `yaml:",inline"`
	Sentinels        models.Sentinels `yaml:"sentinels"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8000"},
		Database: DatabaseConfig{Path: "roster.db"},
		Auth: AuthConfig{
			AdminUsername:    "admin",
			AdminPassword:    "admin123",
			TokenTTL:         24 * time.Hour,
			DefaultRateLimit: 10000,
		},
		Log: LogConfig{Level: "info"},
		Solver: SolverConfig{
			Backend:   "native",
			Objective: string(scheduler.FormPenalty),
			Trials:    1,
			TimeLimit: 30 * time.Second,
		},
		Policy: PolicyConfig{
			Policy: scheduler.DefaultPolicy(),
			Sentinels: models.Sentinels{
				models.CategoryShortage:  {"shortage"},
				models.CategoryUnneeded:  {"unneeded"},
				models.CategoryMedical:   {"medical"},
				models.CategoryTempStaff: {"temp_staff", "temp-staff"},
			},
		},
	}
}

// LoadEnvFiles loads the first .env found in the working directory or its
// parents. Variables already set in the environment win.
func LoadEnvFiles() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, in that order. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinMode, "GIN_MODE")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Path, "DATA_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.APIMasterSecret, "API_MASTER_SECRET")
	setString(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&c.Auth.AdminPassword, "ADMIN_PASSWORD")
	setString(&c.Solver.Backend, "SOLVER_BACKEND")
	setString(&c.Solver.Objective, "SOLVER_OBJECTIVE")

	if v := os.Getenv("SOLVER_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SOLVER_TRIALS: %w", err)
		}
		c.Solver.Trials = n
	}
	if v := os.Getenv("SOLVER_TIME_LIMIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SOLVER_TIME_LIMIT: %w", err)
		}
		c.Solver.TimeLimit = d
	}
	if v := os.Getenv("SOLVER_DAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SOLVER_DAY_TIMEOUT: %w", err)
		}
		c.Solver.DayTimeout = d
	}
	return nil
}

// ErrMissingSecret is returned by ValidateServer when a signing secret is empty
var ErrMissingSecret = errors.New("config: signing secret is not set")

// ValidateServer checks what the HTTP service needs on top of Validate
func (c *Config) ValidateServer() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret (JWT_SECRET)", ErrMissingSecret)
	}
	if c.Auth.APIMasterSecret == "" {
		return fmt.Errorf("%w: auth.api_master_secret (API_MASTER_SECRET)", ErrMissingSecret)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if _, err := scheduler.ParseObjectiveForm(c.Solver.Objective); err != nil {
		return fmt.Errorf("config: solver.objective: %w", err)
	}
	if c.Solver.Trials < 1 {
		return fmt.Errorf("config: solver.trials must be at least 1, got %d", c.Solver.Trials)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("config: solver.workers must not be negative, got %d", c.Solver.Workers)
	}
	for cat := range c.Policy.RoleCaps {
		if _, err := models.ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("config: policy.role_caps: %w", err)
		}
	}
	for cat := range c.Policy.Penalties {
		if _, err := models.ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("config: policy.penalties: %w", err)
		}
	}
	for cat := range c.Policy.Sentinels {
		if _, err := models.ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("config: policy.sentinels: %w", err)
		}
	}
	return nil
}
