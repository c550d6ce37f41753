package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/roster-solver/pkg/config"
	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/roster"
	"github.com/arnavshah/roster-solver/pkg/scheduler"
	"github.com/arnavshah/roster-solver/pkg/solver"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Recorder is what the service reports to besides the per-solve hooks
type Recorder interface {
	scheduler.Recorder
	ObserveRun(source string, took time.Duration)
}

// Service turns datasets into schedules using the configured solver settings
type Service struct {
	solverCfg config.SolverConfig
	policy    config.PolicyConfig
	logger    *zap.Logger
	recorder  Recorder
	validate  *validator.Validate
}

// Option customizes a Service
type Option func(*Service)

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// WithRecorder reports solve and run outcomes, usually to pkg/metrics
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithValidator shares a validator, e.g. gin's binding engine
func WithValidator(v *validator.Validate) Option { return func(s *Service) { s.validate = v } }

// New creates a Service
func New(solverCfg config.SolverConfig, policy config.PolicyConfig, opts ...Option) *Service {
	s := &Service{solverCfg: solverCfg, policy: policy}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Request overrides the configured solver settings for one run. Zero values
// keep the configuration.
type Request struct {
	Source    string
	Trials    int
	Objective string
	Seed      *int64
	Days      []string
	Workers   int
}

// Outcome is a finished run
type Outcome struct {
	Roster    *roster.Roster
	Objective scheduler.ObjectiveForm
	Trials    int
	Schedule  []models.ScheduleEntry
	Failures  []models.DayFailure
	Took      time.Duration
}

// Validate checks ds and returns the roster it describes
func (s *Service) Validate(ds *models.Dataset) (*roster.Roster, error) {
	opts := []roster.Option{
		roster.WithLogger(s.logger.Named("roster")),
		roster.WithSentinels(s.policy.Sentinels),
	}
	if s.validate != nil {
		opts = append(opts, roster.WithValidator(s.validate))
	}
	return roster.New(ds, opts...)
}

// Run validates ds and solves the requested days
func (s *Service) Run(ctx context.Context, ds *models.Dataset, req Request) (*Outcome, error) {
	start := time.Now()

	r, err := s.Validate(ds)
	if err != nil {
		return nil, err
	}

	objective := req.Objective
	if objective == "" {
		objective = s.solverCfg.Objective
	}
	form, err := scheduler.ParseObjectiveForm(objective)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", roster.ErrValidation, err)
	}

	backendName := s.solverCfg.Backend
	if backendName == "" {
		backendName = "native"
	}
	backend, err := solver.New(backendName, s.logger.Named("solver"))
	if err != nil {
		return nil, err
	}

	trials := req.Trials
	if trials <= 0 {
		trials = s.solverCfg.Trials
	}
	seed := req.Seed
	if seed == nil {
		seed = s.solverCfg.Seed
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.solverCfg.Workers
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(s.logger),
		scheduler.WithBackend(backend),
		scheduler.WithPolicy(s.policy.Policy),
		scheduler.WithObjective(form),
		scheduler.WithVerbose(s.solverCfg.Verbose),
		scheduler.WithTimeLimit(s.solverCfg.TimeLimit),
		scheduler.WithDayTimeout(s.solverCfg.DayTimeout),
	}
	if s.recorder != nil {
		schedOpts = append(schedOpts, scheduler.WithRecorder(s.recorder))
	}
	entries, failures, err := scheduler.New(r, schedOpts...).Run(ctx, scheduler.RunOptions{
		Days:    req.Days,
		Trials:  trials,
		Workers: workers,
		Seed:    seed,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Roster:    r,
		Objective: form,
		Trials:    max(trials, 1),
		Schedule:  entries,
		Failures:  failures,
		Took:      time.Since(start),
	}
	if s.recorder != nil {
		source := req.Source
		if source == "" {
			source = "unknown"
		}
		s.recorder.ObserveRun(source, out.Took)
	}
	return out, nil
}
