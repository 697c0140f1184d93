package fleet

import (
	"context"
	"testing"

	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
)

func TestCycleStaysWithinHalfSpan(t *testing.T) {
	f := New("test", sim.NewRand(7))
	ctx := context.Background()

	prev := f.Snapshot()
	for cycle := 0; cycle < 200; cycle++ {
		next := f.Cycle(ctx)
		if len(next) != len(prev) {
			t.Fatalf("cycle %d: fleet size changed", cycle)
		}
		for i := range next {
			if next[i].ID != prev[i].ID {
				t.Fatalf("cycle %d: order changed at %d", cycle, i)
			}
			if !prev[i].Position.Within(next[i].Position, JitterSpan/2) {
				t.Fatalf("cycle %d: %s moved from %+v to %+v", cycle, next[i].ID, prev[i].Position, next[i].Position)
			}
		}
		prev = next
	}
}

func TestCycleKeepsAttributes(t *testing.T) {
	f := New("test", sim.NewRand(1))
	f.Cycle(context.Background())
	seed := transit.SeedVehicles()
	for i, v := range f.Snapshot() {
		if v.Route != seed[i].Route || v.Status != seed[i].Status || v.Passengers != seed[i].Passengers || v.ETA != seed[i].ETA {
			t.Errorf("vehicle %s attributes changed: %+v", v.ID, v)
		}
	}
}

func TestFleetsAreIndependent(t *testing.T) {
	a := New("a", sim.NewRand(3))
	b := New("b", sim.NewRand(3))
	a.Cycle(context.Background())

	seed := transit.SeedVehicles()
	for i, v := range b.Snapshot() {
		if v.Position != seed[i].Position {
			t.Errorf("cycling one fleet moved %s in another", v.ID)
		}
	}
	if a.Len() != 4 {
		t.Errorf("expected 4 vehicles, got %d", a.Len())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	f := New("test", sim.NewRand(1))
	s := f.Snapshot()
	s[0].Passengers = 999
	if f.Snapshot()[0].Passengers == 999 {
		t.Error("snapshot aliases fleet state")
	}
}
