package scheduler

import (
	"math/rand"
	"sync"
	"time"
)

// SeedSource hands out the solver seed for each trial. A nil seed keeps the
// model's own column order.
type SeedSource interface {
	Seed(trial int) *int64
}

// SeedFunc adapts a function to SeedSource
type SeedFunc func(trial int) *int64

func (f SeedFunc) Seed(trial int) *int64 { return f(trial) }

// NoSeed never perturbs the solver
var NoSeed SeedSource = SeedFunc(func(int) *int64 { return nil })

// Sequential returns base, base+1, ... for trials 0, 1, ...
func Sequential(base int64) SeedSource {
	return SeedFunc(func(trial int) *int64 {
		s := base + int64(trial)
		return &s
	})
}

type randomSeeds struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Random draws fresh seeds from a clock-seeded generator. It is safe for
// concurrent use.
func Random() SeedSource {
	return &randomSeeds{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *randomSeeds) Seed(int) *int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rng.Int63()
	return &s
}
