package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transittrack/pkg/geo"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/notify"
	"transittrack/pkg/schedule"
	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
)

// AdvanceJitterSpan is the per-axis jitter around each stop the bus visits.
const AdvanceJitterSpan = 0.002

const (
	driverMarkerID = "driver"
	routeLineID    = "route"
)

// MapConfig configures the driver navigation map.
type MapConfig struct {
	Credential      string
	AdvanceInterval time.Duration
	Start           geo.Point
	Zoom            int
}

func (c MapConfig) withDefaults() MapConfig {
	if c.AdvanceInterval <= 0 {
		c.AdvanceInterval = 15 * time.Second
	}
	if c.Start == (geo.Point{}) {
		c.Start = transit.MapCenter
	}
	if c.Zoom == 0 {
		c.Zoom = 13
	}
	return c
}

// MapDeps are the collaborators of a Map. Nil fields get harmless defaults.
type MapDeps struct {
	Surface  mapwidget.Surface
	Notifier notify.Notifier
	Loader   mapwidget.Loader
	Rand     sim.Rand
	Logger   *slog.Logger
}

// Map shows the selected route and moves the driver's marker from stop to
// stop while a trip is active.
type Map struct {
	cfg      MapConfig
	surface  mapwidget.Surface
	notifier notify.Notifier
	loader   mapwidget.Loader
	rng      sim.Rand
	logger   *slog.Logger
	group    *schedule.Group

	mu         sync.Mutex
	loaded     bool
	active     bool
	routeID    string
	route      transit.Route
	drawnStops int
	drawnLine  bool
	position   geo.Point
	index      int
	advance    *schedule.Task
}

func NewMap(cfg MapConfig, deps MapDeps) *Map {
	if deps.Surface == nil {
		deps.Surface = mapwidget.CommandSurface(func(mapwidget.Command) {})
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Loader == nil {
		deps.Loader = mapwidget.Offline
	}
	if deps.Rand == nil {
		deps.Rand = sim.NewRand(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Map{
		cfg:      cfg,
		surface:  deps.Surface,
		notifier: deps.Notifier,
		loader:   deps.Loader,
		rng:      deps.Rand,
		logger:   deps.Logger.With("component", "driver_map"),
		group:    schedule.NewGroup(context.Background()),
		position: cfg.Start,
	}
}

// Mount shows the placeholder when no credential is configured, otherwise
// loads the widget in the background.
func (m *Map) Mount(ctx context.Context) {
	if mapwidget.IsPlaceholder(m.cfg.Credential) {
		m.surface.ShowPlaceholder("Google Maps API key required for driver navigation")
		return
	}
	m.group.Go(func(ctx context.Context) {
		err := mapwidget.Probe(ctx, m.loader, m.cfg.Credential)
		m.finishLoad(ctx, err)
	})
}

func (m *Map) finishLoad(ctx context.Context, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Error("Error loading map widget", "error", err)
		m.notifier.Notify(ctx, notify.Error("Map Error", "Failed to load Google Maps. Please check your API key."))
		m.surface.Clear()
		return
	}

	m.surface.CreateMap(mapwidget.MapOptions{
		APIKey: m.cfg.Credential,
		Center: m.position,
		Zoom:   m.cfg.Zoom,
		Styles: mapwidget.TransitStyle,
	})
	m.surface.AddMarker(mapwidget.Marker{
		ID:       driverMarkerID,
		Title:    "Your Bus",
		Position: m.position,
		Icon:     mapwidget.DriverIcon(m.routeID),
	})
	m.loaded = true
	m.drawRouteLocked()
	m.reconcileLocked(false)
}

// SetRoute draws the stops of route id once the map is loaded. Unknown ids
// clear the route and draw nothing.
func (m *Map) SetRoute(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.routeID {
		return
	}
	m.routeID = id
	m.route, _ = transit.LookupRoute(id)
	if m.loaded {
		m.drawRouteLocked()
	}
	m.reconcileLocked(true)
}

// SetActive starts or stops the stop-to-stop advance.
func (m *Map) SetActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	m.reconcileLocked(false)
}

// Position is the driver marker's current position.
func (m *Map) Position() geo.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// StopIndex is the stop the next advance will head to.
func (m *Map) StopIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Map) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Advancing reports whether the advance task is running.
func (m *Map) Advancing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advance != nil
}

// Close stops the advance task and any pending load, and waits for them.
func (m *Map) Close() {
	m.group.Close()
}

func (m *Map) drawRouteLocked() {
	if m.drawnLine {
		m.surface.RemovePolyline(routeLineID)
		m.drawnLine = false
	}
	for i := 0; i < m.drawnStops; i++ {
		m.surface.RemoveMarker(stopMarkerID(i))
	}
	m.drawnStops = 0

	if len(m.route.Stops) == 0 {
		return
	}
	points := m.route.Points()
	m.surface.DrawPolyline(mapwidget.Polyline{
		ID:       routeLineID,
		Path:     points,
		Color:    "#2563eb",
		Opacity:  1,
		Weight:   4,
		Geodesic: true,
	})
	m.drawnLine = true
	for i, stop := range m.route.Stops {
		m.surface.AddMarker(mapwidget.Marker{
			ID:       stopMarkerID(i),
			Title:    stop.Name,
			Position: stop.Position,
			Icon:     mapwidget.StopIcon(),
			Label:    fmt.Sprint(i + 1),
		})
	}
	m.drawnStops = len(m.route.Stops)
	m.surface.FitBounds(geo.BoundsOf(points...))
}

// reconcileLocked keeps the advance task running iff the trip is active, the
// map is loaded and the route has stops. restart forces a fresh task.
func (m *Map) reconcileLocked(restart bool) {
	want := m.active && m.loaded && len(m.route.Stops) > 0
	if m.advance != nil && (!want || restart) {
		m.advance.Stop()
		m.advance = nil
	}
	if want && m.advance == nil {
		m.index = 0
		m.advance = m.group.Every(m.cfg.AdvanceInterval, m.step)
	}
}

func (m *Map) step(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil || len(m.route.Stops) == 0 {
		return
	}
	target := m.route.Stops[m.index%len(m.route.Stops)].Position
	m.position = sim.Perturb(m.rng, target, AdvanceJitterSpan)
	m.surface.MoveMarker(driverMarkerID, m.position)
	m.surface.PanTo(m.position)
	m.index = (m.index + 1) % len(m.route.Stops)
}

func stopMarkerID(i int) string {
	return fmt.Sprintf("stop-%d", i+1)
}
