// Package sim holds the pseudo-random helpers behind the simulated feeds.
package sim

import (
	"math/rand/v2"
	"time"

	"transittrack/pkg/geo"
)

// Rand is the subset of *rand.Rand the simulators need. Implementations are
// not required to be safe for concurrent use; owners serialise access.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a PCG-backed source. A zero seed picks one from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Jitter returns a uniform value in [-span/2, span/2).
func Jitter(r Rand, span float64) float64 {
	return (r.Float64() - 0.5) * span
}

// Perturb moves p by independent jitter on both axes.
func Perturb(r Rand, p geo.Point, span float64) geo.Point {
	return p.Offset(Jitter(r, span), Jitter(r, span))
}

// Pick returns a uniformly chosen element of items. items must not be empty.
func Pick[T any](r Rand, items []T) T {
	return items[r.IntN(len(items))]
}
