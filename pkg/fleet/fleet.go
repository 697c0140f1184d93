// Package fleet simulates bus movement by jittering a private copy of the
// seed vehicles.
package fleet

import (
	"context"
	"sync"

	"transittrack/pkg/metrics"
	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
)

// JitterSpan is the full width of a cycle's per-axis jitter, so a
// coordinate moves at most JitterSpan/2 degrees per cycle.
const JitterSpan = 0.001

// Fleet is safe for concurrent use.
type Fleet struct {
	name string

	mu       sync.Mutex
	rng      sim.Rand
	vehicles []transit.Vehicle
}

// New returns a fleet of the seed vehicles. name labels its metrics.
func New(name string, rng sim.Rand) *Fleet {
	return &Fleet{
		name:     name,
		rng:      rng,
		vehicles: transit.SeedVehicles(),
	}
}

// Cycle jitters every vehicle once and returns the new positions.
func (f *Fleet) Cycle(ctx context.Context) []transit.Vehicle {
	f.mu.Lock()
	for i := range f.vehicles {
		f.vehicles[i].Position = sim.Perturb(f.rng, f.vehicles[i].Position, JitterSpan)
	}
	out := append([]transit.Vehicle(nil), f.vehicles...)
	f.mu.Unlock()

	metrics.RecordFleetCycle(ctx, f.name)
	return out
}

// Snapshot returns a copy of the current vehicles in seed order.
func (f *Fleet) Snapshot() []transit.Vehicle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transit.Vehicle(nil), f.vehicles...)
}

func (f *Fleet) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vehicles)
}
