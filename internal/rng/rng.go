// Package rng provides seeded uniform random sources that can be shared
// between goroutines.
package rng

import (
	"math/rand"
	"sync"
)

// Source is a seeded uniform random source guarded by a mutex.
type Source struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed int64
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() int64 { return s.seed }

// Uniform returns a number drawn uniformly from [low, high).
func (s *Source) Uniform(low, high float64) float64 {
	s.mu.Lock()
	u := s.rand.Float64()
	s.mu.Unlock()
	return low + (high-low)*u
}

// Int63 returns a non-negative pseudo-random 63-bit integer.
func (s *Source) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Int63()
}

// Rand returns an independent *rand.Rand seeded from s, for libraries that
// take one directly. The returned generator is not safe for concurrent use.
func (s *Source) Rand() *rand.Rand {
	return rand.New(rand.NewSource(s.Int63()))
}
