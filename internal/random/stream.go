// Package random provides the single reseedable random stream every stochastic
// step of a run draws from.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the minimal draw interface the evolutionary components depend on.
type Source interface {
	// Intn returns a uniformly distributed integer in [0, n). It panics if n <= 0.
	Intn(n int) int
}

// Stream is a Source whose seed can be fixed or reset between runs. Draw order
// is part of the reproducibility contract, so a Stream must not be shared by
// goroutines that draw concurrently.
type Stream struct {
	mu     sync.Mutex
	rng    *rand.Rand
	seed   int64
	seeded bool
}

// NewStream returns a stream that replays the same sequence for the same seed.
func NewStream(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewSource(seed)), seed: seed, seeded: true}
}

// NewClockStream returns a stream seeded from the wall clock.
func NewClockStream() *Stream {
	seed := time.Now().UnixNano()
	return &Stream{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

func (s *Stream) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Seed restarts the stream from seed and makes it the configured seed.
func (s *Stream) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.seeded = true
	s.rng = rand.New(rand.NewSource(seed))
}

// Recycle restarts the stream: from the configured seed when one was given,
// otherwise from a fresh clock seed.
func (s *Stream) Recycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		s.seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(s.seed))
}

// CurrentSeed reports the seed the stream was last started from.
func (s *Stream) CurrentSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// Seeded reports whether the stream replays a caller-supplied seed.
func (s *Stream) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}
