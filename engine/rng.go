package engine

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// RNG wraps math/rand.Rand with a mutex so one source can serve every
// session. Position counts draws, which is useful when tracing.
type RNG struct {
	mu   sync.Mutex
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates an RNG from seed. A zero seed picks a time-based one.
func NewRNG(seed int64) *RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Intn returns a uniform integer in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Intn(n)
}

// Pick returns an index chosen by weighted random selection over a
// cumulative weight table (prefix sums of positive weights).
func (r *RNG) Pick(cumulative []int) int {
	if len(cumulative) == 0 {
		return 0
	}
	roll := r.Intn(cumulative[len(cumulative)-1])
	return sort.SearchInts(cumulative, roll+1)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}
