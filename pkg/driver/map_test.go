package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"transittrack/pkg/geo"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/notify"
	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
)

func newMap(t *testing.T, credential string, loadErr error, interval time.Duration) (*Map, *mapwidget.Recorder, *notify.Collector) {
	t.Helper()
	rec, notes := &mapwidget.Recorder{}, &notify.Collector{}
	m := NewMap(MapConfig{Credential: credential, AdvanceInterval: interval}, MapDeps{
		Surface:  rec.Surface(),
		Notifier: notes,
		Loader: mapwidget.LoaderFunc(func(context.Context, string) error {
			return loadErr
		}),
		Rand: sim.NewRand(9),
	})
	t.Cleanup(m.Close)
	return m, rec, notes
}

func mountLoaded(t *testing.T, m *Map) {
	t.Helper()
	m.Mount(context.Background())
	waitFor(t, time.Second, m.Loaded)
}

func TestMountPlaceholder(t *testing.T) {
	m, rec, _ := newMap(t, mapwidget.PlaceholderKey, nil, time.Millisecond)
	m.Mount(context.Background())
	m.SetRoute("4B")
	m.SetActive(true)
	time.Sleep(20 * time.Millisecond)

	cmds := rec.Commands()
	if len(cmds) != 1 || cmds[0].Op != mapwidget.OpShowPlaceholder || cmds[0].Message != "Google Maps API key required for driver navigation" {
		t.Fatalf("unexpected commands %+v", cmds)
	}
	if m.Advancing() {
		t.Error("advance must not run without a map")
	}
}

func TestMountCreatesDriverMarker(t *testing.T) {
	m, rec, _ := newMap(t, "key", nil, time.Hour)
	mountLoaded(t, m)

	create, ok := rec.Last(mapwidget.OpCreateMap)
	if !ok || create.Map.Zoom != 13 || create.Map.Center != (geo.Point{Lat: 40.7128, Lng: -74.0060}) {
		t.Errorf("unexpected map %+v", create.Map)
	}
	marker, ok := rec.Last(mapwidget.OpAddMarker)
	if !ok || marker.Marker.Title != "Your Bus" {
		t.Errorf("driver marker missing: %+v", marker)
	}
}

func TestMountFailure(t *testing.T) {
	m, rec, notes := newMap(t, "key", errors.New("denied"), time.Millisecond)
	m.Mount(context.Background())
	waitFor(t, time.Second, func() bool { return rec.Count(mapwidget.OpClear) == 1 })

	if n, _ := notes.Last(); n.Severity != notify.SeverityDestructive {
		t.Errorf("expected destructive notification, got %+v", n)
	}
	m.SetRoute("4B")
	m.SetActive(true)
	if m.Advancing() || rec.Count(mapwidget.OpDrawPolyline) != 0 {
		t.Error("failed map must stay inert")
	}
}

func TestSetRouteDrawsStops(t *testing.T) {
	m, rec, _ := newMap(t, "key", nil, time.Hour)
	mountLoaded(t, m)
	rec.Reset()

	m.SetRoute("12C")
	if n := rec.Count(mapwidget.OpDrawPolyline); n != 1 {
		t.Fatalf("expected one polyline, got %d", n)
	}
	var labels []string
	for _, c := range rec.Commands() {
		if c.Op == mapwidget.OpAddMarker {
			labels = append(labels, c.Marker.Label)
		}
	}
	if len(labels) != 3 || labels[0] != "1" || labels[2] != "3" {
		t.Errorf("unexpected stop labels %v", labels)
	}
	fit, ok := rec.Last(mapwidget.OpFitBounds)
	if !ok {
		t.Fatal("bounds not fitted")
	}
	route, _ := transit.LookupRoute("12C")
	for _, p := range route.Points() {
		sw, ne := fit.Bounds.SouthWest, fit.Bounds.NorthEast
		if p.Lat < sw.Lat || p.Lat > ne.Lat || p.Lng < sw.Lng || p.Lng > ne.Lng {
			t.Errorf("bounds %+v exclude stop %+v", fit.Bounds, p)
		}
	}

	rec.Reset()
	m.SetRoute("4B")
	if rec.Count(mapwidget.OpRemovePolyline) != 1 || rec.Count(mapwidget.OpRemoveMarker) != 3 {
		t.Errorf("previous route not removed: %+v", rec.Commands())
	}

	rec.Reset()
	m.SetRoute("nope")
	if rec.Count(mapwidget.OpDrawPolyline) != 0 || rec.Count(mapwidget.OpAddMarker) != 0 {
		t.Error("unknown route must draw nothing")
	}
}

func TestRouteSelectedBeforeLoadIsDrawn(t *testing.T) {
	m, rec, _ := newMap(t, "key", nil, time.Hour)
	m.SetRoute("7A")
	mountLoaded(t, m)
	if rec.Count(mapwidget.OpDrawPolyline) != 1 {
		t.Error("route chosen before load should be drawn once loaded")
	}
}

func TestAdvanceVisitsStopsInOrder(t *testing.T) {
	m, rec, _ := newMap(t, "key", nil, 3*time.Millisecond)
	mountLoaded(t, m)
	m.SetRoute("4B")
	m.SetActive(true)

	route, _ := transit.LookupRoute("4B")
	n := len(route.Stops)
	waitFor(t, time.Second, func() bool { return rec.Count(mapwidget.OpMoveMarker) >= 2*n+1 })
	m.SetActive(false)

	i := 0
	for _, c := range rec.Commands() {
		if c.Op != mapwidget.OpMoveMarker {
			continue
		}
		target := route.Stops[i%n].Position
		if !target.Within(*c.Position, AdvanceJitterSpan/2) {
			t.Fatalf("move %d: %+v not near stop %d %+v", i, *c.Position, i%n, target)
		}
		i++
	}
	if got := rec.Count(mapwidget.OpPanTo); got != rec.Count(mapwidget.OpMoveMarker) {
		t.Errorf("every move should pan, moves=%d pans=%d", rec.Count(mapwidget.OpMoveMarker), got)
	}
}

func TestAdvanceNeedsRoute(t *testing.T) {
	m, _, _ := newMap(t, "key", nil, time.Millisecond)
	mountLoaded(t, m)
	m.SetActive(true)
	if m.Advancing() {
		t.Error("advance must not run without a route")
	}
	m.SetRoute("9D")
	if !m.Advancing() {
		t.Error("advance should start once a route is set")
	}
	m.SetActive(false)
	if m.Advancing() {
		t.Error("advance should stop when inactive")
	}
}

func TestRestartResetsIndex(t *testing.T) {
	m, _, _ := newMap(t, "key", nil, 2*time.Millisecond)
	mountLoaded(t, m)
	m.SetRoute("4B")
	m.SetActive(true)
	waitFor(t, time.Second, func() bool { return m.StopIndex() != 0 })
	m.SetActive(false)
	m.SetActive(true)
	if got := m.StopIndex(); got != 0 {
		t.Errorf("index after restart = %d, want 0", got)
	}
}

func TestDashboardDrivesMap(t *testing.T) {
	m, rec, _ := newMap(t, "key", nil, 2*time.Millisecond)
	mountLoaded(t, m)
	d, _, _, _ := newDashboard(t, Config{TickInterval: time.Hour, SignalInterval: time.Hour}, m)
	ctx := context.Background()

	d.SelectRoute(ctx, "7A")
	if rec.Count(mapwidget.OpDrawPolyline) != 1 {
		t.Error("selecting a route should draw it")
	}
	d.Start(ctx)
	if !m.Advancing() {
		t.Fatal("starting a trip should start the advance")
	}
	d.End(ctx)
	if m.Advancing() {
		t.Error("ending a trip should stop the advance")
	}
}
