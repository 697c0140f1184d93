package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transittrack/pkg/fleet"
)

// publisher advances the shared demo fleet and broadcasts updates when
// vehicles change.
type publisher struct {
	fleet    *fleet.Fleet
	interval time.Duration
	hub      *wsHub

	mu           sync.Mutex
	lastVehicles map[string]Vehicle
	order        []string
}

func newPublisher(f *fleet.Fleet, interval time.Duration, hub *wsHub) *publisher {
	p := &publisher{
		fleet:        f,
		interval:     interval,
		hub:          hub,
		lastVehicles: make(map[string]Vehicle),
	}
	p.detectChanges(feedVehicles(f.Snapshot()))
	return p
}

func (p *publisher) run(ctx context.Context) {
	t := time.NewTimer(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
			t.Reset(p.interval)
		}
	}
}

func (p *publisher) tick(ctx context.Context) {
	changed, snapshot := p.detectChanges(feedVehicles(p.fleet.Cycle(ctx)))
	if changed {
		slog.Debug("Feed vehicles updated", "count", len(snapshot))
		p.hub.broadcast(snapshot)
	}
}

// detectChanges stamps LastUpdate on moved vehicles and returns the
// snapshot in fleet order.
func (p *publisher) detectChanges(in []Vehicle) (bool, []Vehicle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now().UnixMilli()
	changed := false
	current := make(map[string]Vehicle, len(in))
	order := make([]string, 0, len(in))
	for _, v := range in {
		prev, ok := p.lastVehicles[v.ID]
		if !ok || prev.Lat != v.Lat || prev.Lon != v.Lon {
			v.LastUpdate = now
			changed = true
		} else {
			v.LastUpdate = prev.LastUpdate
		}
		current[v.ID] = v
		order = append(order, v.ID)
	}
	p.lastVehicles = current
	p.order = order
	return changed, p.snapshotLocked()
}

// snapshot returns a copy of the last published vehicle list.
func (p *publisher) snapshot() []Vehicle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *publisher) snapshotLocked() []Vehicle {
	out := make([]Vehicle, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.lastVehicles[id])
	}
	return out
}
