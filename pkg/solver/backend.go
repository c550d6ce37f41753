package solver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status classifies a solve outcome
type Status int

const (
	StatusError Status = iota
	StatusOptimal
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	}
	return "error"
}

var (
	// ErrUnknownBackend is returned by New for unregistered backend names
	ErrUnknownBackend = errors.New("solver: unknown backend")
	// ErrUnbounded is returned when the relaxation has no finite optimum
	ErrUnbounded = errors.New("solver: problem is unbounded")
	// ErrNodeLimit is returned when branch-and-bound gives up
	ErrNodeLimit = errors.New("solver: node limit reached")
)

// Options tunes one solve
type Options struct {
	// Seed drives the backend's tie-breaking among equally good solutions.
	// Nil keeps the model's own column order.
	Seed *int64
	// Verbose turns on solver tracing
	Verbose bool
	// TimeLimit bounds the solve when positive
	TimeLimit time.Duration
}

// Result carries the solve status and, when optimal, variable values by name
type Result struct {
	Status    Status
	Objective float64
	Values    map[string]float64
	Nodes     int
	Duration  time.Duration
}

// Backend solves a model. Implementations must not mutate the model.
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *Model, opts Options) (*Result, error)
}

// Factory builds a backend around a logger
type Factory func(logger *zap.Logger) Backend

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"native": func(logger *zap.Logger) Backend { return NewNative(logger) },
	}
)

// Register makes a backend available to New
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Backends lists registered backend names
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the named backend
func New(name string, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return f(logger), nil
}

// columnOrder returns the order in which variables are handed to the
// underlying engine. A seed shuffles it so ties resolve differently.
func columnOrder(n int, rng *rand.Rand) []int {
	if rng != nil {
		return rng.Perm(n)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func seededRand(seed *int64) *rand.Rand {
	if seed == nil {
		return nil
	}
	return rand.New(rand.NewSource(*seed))
}
