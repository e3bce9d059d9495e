package entropy

import (
	"errors"
	"math"
)

// Linear congruential step shared by every stream. One fixed triple is used
// everywhere so that a (seed, category) pair reproduces the same draws on any
// platform.
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	lcgModulus    = 1 << 32
)

// ErrEmptyInput is returned by Choice when asked to pick from nothing.
// Inside the generators it always indicates a rule with no candidates.
var ErrEmptyInput = errors.New("entropy: choice from empty sequence")

// Stream is a deterministic pseudo-random sequence driven by a single 32-bit
// state. A Stream is not safe for concurrent use; derive one per goroutine.
type Stream struct {
	state uint32
	draws uint64
}

// NewStream creates a stream whose first draw follows from seed.
func NewStream(seed uint32) *Stream {
	return &Stream{state: seed}
}

// Next advances the state and returns a real in [0, 1).
func (s *Stream) Next() float64 {
	s.state = s.state*lcgMultiplier + lcgIncrement // wraps mod 2^32
	s.draws++
	return float64(s.state) / lcgModulus
}

// Uniform returns a real in [min, max).
func (s *Stream) Uniform(min, max float64) float64 {
	return min + s.Next()*(max-min)
}

// Randint returns an integer in [min, max], both bounds inclusive.
func (s *Stream) Randint(min, max int) int {
	v := int(math.Floor(s.Uniform(float64(min), float64(max)+1)))
	if v > max {
		v = max
	}
	return v
}

// Chance reports whether a single draw falls below p.
func (s *Stream) Chance(p float64) bool {
	return s.Next() < p
}

// Normal returns a normally distributed value using the Box-Muller transform.
// It consumes exactly two draws.
func (s *Stream) Normal(mu, sigma float64) float64 {
	u1 := 1 - s.Next() // (0, 1], keeps the log finite
	u2 := s.Next()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mu + z*sigma
}

// State returns the current internal state.
func (s *Stream) State() uint32 {
	return s.state
}

// Draws returns how many times the stream has advanced.
func (s *Stream) Draws() uint64 {
	return s.draws
}

// Choice returns items[floor(next * len)].
func Choice[T any](s *Stream, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyInput
	}
	idx := int(s.Next() * float64(len(items)))
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx], nil
}

// Weighted pairs a value with its selection weight.
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// WeightedChoice draws once and returns the first item whose cumulative
// weight exceeds the draw. Weights need not sum to one; the draw is scaled by
// their total. When rounding leaves no bucket selected, fallback is returned.
func WeightedChoice[T any](s *Stream, items []Weighted[T], fallback T) (T, error) {
	if len(items) == 0 {
		return fallback, ErrEmptyInput
	}
	total := 0.0
	for _, it := range items {
		total += it.Weight
	}
	r := s.Next() * total
	cumulative := 0.0
	for _, it := range items {
		cumulative += it.Weight
		if r < cumulative {
			return it.Value, nil
		}
	}
	return fallback, nil
}
