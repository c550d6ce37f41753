package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/arnavshah/roster-solver/internal/worker"
	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/roster"
	"github.com/arnavshah/roster-solver/pkg/solver"
	"go.uber.org/zap"
)

// Recorder receives solve outcomes; pkg/metrics implements it
type Recorder interface {
	ObserveTrial(outcome string, took time.Duration)
	ObserveDay(failed bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTrial(string, time.Duration) {}
func (nopRecorder) ObserveDay(bool)                    {}

// Scheduler solves the days of one roster
type Scheduler struct {
	roster   *roster.Roster
	builder  *Builder
	backend  solver.Backend
	policy   Policy
	form     ObjectiveForm
	logger   *zap.Logger
	recorder Recorder

	verbose    bool
	timeLimit  time.Duration
	dayTimeout time.Duration
}

// Option customizes a Scheduler
type Option func(*Scheduler)

func WithLogger(l *zap.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// WithBackend sets the MILP backend, native by default
func WithBackend(b solver.Backend) Option { return func(s *Scheduler) { s.backend = b } }

func WithPolicy(p Policy) Option { return func(s *Scheduler) { s.policy = p } }

// WithObjective selects the objective form, penalty by default
func WithObjective(f ObjectiveForm) Option { return func(s *Scheduler) { s.form = f } }

func WithRecorder(r Recorder) Option { return func(s *Scheduler) { s.recorder = r } }

// WithVerbose turns on solver tracing
func WithVerbose(v bool) Option { return func(s *Scheduler) { s.verbose = v } }

// WithTimeLimit bounds every single solve
func WithTimeLimit(d time.Duration) Option { return func(s *Scheduler) { s.timeLimit = d } }

// WithDayTimeout bounds all trials of one day in Run. A day that runs out of
// time falls back to the unassigned schedule.
func WithDayTimeout(d time.Duration) Option { return func(s *Scheduler) { s.dayTimeout = d } }

// New creates a scheduler for r
func New(r *roster.Roster, opts ...Option) *Scheduler {
	s := &Scheduler{
		roster: r,
		policy: DefaultPolicy(),
		form:   FormPenalty,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.backend == nil {
		s.backend = solver.NewNative(s.logger.Named("solver"))
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	s.builder = NewBuilder(r, s.policy, s.logger)
	return s
}

// Roster returns the roster being scheduled
func (s *Scheduler) Roster() *roster.Roster { return s.roster }

// SolveDay builds a fresh model for day, solves it once and extracts the
// schedule. Non-optimal outcomes come back as *InfeasibleError or
// *SolverError.
func (s *Scheduler) SolveDay(ctx context.Context, day string, seed *int64) (models.DaySchedule, error) {
	dm, err := s.builder.Build(day, s.form)
	if err != nil {
		return nil, err
	}

	res, err := s.backend.Solve(ctx, dm.Model, solver.Options{
		Seed:      seed,
		Verbose:   s.verbose,
		TimeLimit: s.timeLimit,
	})
	if err != nil {
		s.recorder.ObserveTrial(solver.StatusError.String(), durationOf(res))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SolverError{Day: day, Backend: s.backend.Name(), Err: err}
	}
	s.recorder.ObserveTrial(res.Status.String(), res.Duration)

	switch res.Status {
	case solver.StatusOptimal:
	case solver.StatusInfeasible:
		return nil, &InfeasibleError{Day: day}
	default:
		return nil, &SolverError{Day: day, Backend: s.backend.Name(), Err: fmt.Errorf("status %s", res.Status)}
	}

	sched, err := Extract(dm, res)
	if err != nil {
		return nil, &SolverError{Day: day, Backend: s.backend.Name(), Err: err}
	}
	s.logger.Debug("day solved",
		zap.String("day", day),
		zap.Float64("objective", res.Objective),
		zap.Int("nodes", res.Nodes),
		zap.Duration("took", res.Duration),
	)
	return sched, nil
}

// Trial is one attempt of SolveWithDiversity. Err is set when the trial
// fell back to the unassigned schedule.
type Trial struct {
	Index    int
	Seed     *int64
	Schedule models.DaySchedule
	Err      error
}

// SolveWithDiversity solves day trials times, each on a fresh model with the
// seed seeds hands out for it. Infeasible and solver failures do not stop the
// loop: the trial gets the unassigned schedule and its error. Validation and
// context errors are returned.
func (s *Scheduler) SolveWithDiversity(ctx context.Context, day string, trials int, seeds SeedSource) ([]Trial, error) {
	if trials < 1 {
		trials = 1
	}
	if seeds == nil {
		seeds = NoSeed
	}
	out := make([]Trial, 0, trials)
	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed := seeds.Seed(i)
		sched, err := s.SolveDay(ctx, day, seed)
		switch {
		case err == nil:
		case errors.Is(err, ErrInfeasible), errors.Is(err, ErrSolver):
			s.logger.Warn("trial failed, using unassigned schedule",
				zap.String("day", day),
				zap.Int("trial", i+1),
				zap.Error(err),
			)
			sched = s.policy.Unassigned(s.roster.Roles())
		default:
			return nil, err
		}
		out = append(out, Trial{Index: i, Seed: seed, Schedule: sched, Err: err})
	}
	return out, nil
}

// RunOptions controls a batch run
type RunOptions struct {
	// Days to solve, all roster days when empty
	Days []string
	// Trials per day, at least 1
	Trials int
	// Workers solving days in parallel, GOMAXPROCS when zero
	Workers int
	// Seed makes the whole run reproducible. Without it a single trial uses
	// the model's own order and multiple trials draw random seeds.
	Seed *int64
}

// Run solves every requested day on a worker pool and returns one entry per
// (day, trial) in day order then trial order. Days that fail fall back to
// the unassigned schedule and are listed in the failures. Unknown days fail
// the whole run before anything is solved.
func (s *Scheduler) Run(ctx context.Context, opts RunOptions) ([]models.ScheduleEntry, []models.DayFailure, error) {
	days := opts.Days
	if len(days) == 0 {
		days = s.roster.Days()
	}
	for _, d := range days {
		if !s.roster.HasDay(d) {
			return nil, nil, fmt.Errorf("%w: unknown day %q", roster.ErrValidation, d)
		}
	}
	trials := opts.Trials
	if trials < 1 {
		trials = 1
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(days) {
		workers = len(days)
	}

	perDay := make([][]Trial, len(days))
	pool := worker.NewPool(len(days))
	if err := pool.Start(ctx, workers); err != nil {
		return nil, nil, err
	}
	for i, day := range days {
		i, day := i, day
		seeds := s.seedsFor(i, trials, opts.Seed)
		err := pool.Submit(worker.Task{ID: i, Timeout: s.dayTimeout, Fn: func(dayCtx context.Context) error {
			res, err := s.SolveWithDiversity(dayCtx, day, trials, seeds)
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				res, err = s.timedOut(day, trials, err), nil
			}
			perDay[i] = res
			return err
		}})
		if err != nil {
			pool.Stop()
			return nil, nil, err
		}
	}
	pool.Stop()

	var firstErr error
	for {
		res, err := pool.ReceiveResult()
		if errors.Is(err, worker.ErrPoolClosed) {
			break
		}
		if res.Err != nil && firstErr == nil {
			firstErr = res.Err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	entries := make([]models.ScheduleEntry, 0, len(days)*trials)
	var failures []models.DayFailure
	for i, day := range days {
		failed := false
		for _, t := range perDay[i] {
			label := day
			if trials > 1 {
				label = fmt.Sprintf("%s#%d", day, t.Index+1)
			}
			entries = append(entries, models.ScheduleEntry{
				Label: label,
				Day:   day,
				Trial: t.Index + 1,
				Roles: t.Schedule,
			})
			if t.Err != nil {
				failed = true
				failures = append(failures, models.DayFailure{Day: day, Trial: t.Index + 1, Reason: t.Err.Error()})
			}
		}
		s.recorder.ObserveDay(failed)
	}
	s.logger.Info("run finished",
		zap.Int("days", len(days)),
		zap.Int("workers", pool.GetWorkerCount()),
		zap.Int("trials", trials),
		zap.Int("failures", len(failures)),
	)
	return entries, failures, nil
}

// timedOut fills every trial of a day that hit the day timeout
func (s *Scheduler) timedOut(day string, trials int, cause error) []Trial {
	err := &SolverError{Day: day, Backend: s.backend.Name(), Err: cause}
	s.logger.Warn("day timed out, using unassigned schedule",
		zap.String("day", day),
		zap.Duration("timeout", s.dayTimeout),
	)
	out := make([]Trial, trials)
	for i := range out {
		out[i] = Trial{Index: i, Schedule: s.policy.Unassigned(s.roster.Roles()), Err: err}
	}
	return out
}

// seedsFor gives every (day, trial) pair its own seed so results do not
// depend on which worker picks a day up
func (s *Scheduler) seedsFor(dayIndex, trials int, seed *int64) SeedSource {
	switch {
	case seed != nil:
		return Sequential(*seed + int64(dayIndex*trials))
	case trials > 1:
		return Random()
	}
	return NoSeed
}

func durationOf(res *solver.Result) time.Duration {
	if res == nil {
		return 0
	}
	return res.Duration
}
