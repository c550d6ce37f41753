package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible matches every InfeasibleError
	ErrInfeasible = errors.New("scheduler: no feasible schedule")
	// ErrSolver matches every SolverError
	ErrSolver = errors.New("scheduler: solver failed")
)

// InfeasibleError reports a day whose model has no feasible assignment
type InfeasibleError struct {
	Day string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("scheduler: day %q has no feasible schedule", e.Day)
}

func (e *InfeasibleError) Is(target error) bool { return target == ErrInfeasible }

// SolverError reports a backend that could not finish a solve
type SolverError struct {
	Day     string
	Backend string
	Err     error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("scheduler: %s backend failed on day %q: %v", e.Backend, e.Day, e.Err)
}

func (e *SolverError) Is(target error) bool { return target == ErrSolver }

func (e *SolverError) Unwrap() error { return e.Err }
