// Package driver implements the driver's trip state machine and the
// navigation map that follows the selected route.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transittrack/pkg/metrics"
	"transittrack/pkg/notify"
	"transittrack/pkg/schedule"
	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
)

var (
	ErrRouteRequired = errors.New("route required")
	ErrRouteLocked   = errors.New("route cannot change during an active trip")
	ErrTripActive    = errors.New("trip already active")
	ErrTripNotActive = errors.New("no active trip")
)

type State int

const (
	Idle State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "active":
		*s = Active
	case "ended":
		*s = Ended
	default:
		return fmt.Errorf("unknown trip state %q", b)
	}
	return nil
}

// Badge is the header status label.
func (s State) Badge() string {
	if s == Active {
		return "ACTIVE"
	}
	return "OFFLINE"
}

// Snapshot is the rendered state of a dashboard.
type Snapshot struct {
	State       State  `json:"state"`
	Badge       string `json:"badge"`
	RouteID     string `json:"route_id"`
	RouteName   string `json:"route_name"`
	Elapsed     int    `json:"elapsed"`
	ElapsedText string `json:"elapsed_text"`
	Location    string `json:"location"`
	Passengers  int    `json:"passengers"`
	GPS         bool   `json:"gps"`
}

type Config struct {
	TickInterval   time.Duration
	SignalInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SignalInterval <= 0 {
		c.SignalInterval = 10 * time.Second
	}
	return c
}

// Deps are the collaborators of a Dashboard. Ops, when set, receives trip
// start and end notices for the operations channel. OnChange is called with
// every new snapshot while the dashboard lock is held, so it must not call
// back into the dashboard.
type Deps struct {
	Map      *Map
	Notifier notify.Notifier
	Ops      notify.Notifier
	Rand     sim.Rand
	Logger   *slog.Logger
	OnChange func(Snapshot)
}

// Dashboard is one driver's trip controller.
type Dashboard struct {
	cfg      Config
	dmap     *Map
	notifier notify.Notifier
	ops      notify.Notifier
	rng      sim.Rand
	logger   *slog.Logger
	onChange func(Snapshot)
	group    *schedule.Group

	mu         sync.Mutex
	state      State
	routeID    string
	elapsed    int
	location   string
	passengers int
	ticker     *schedule.Task
	signal     *schedule.Task
}

func NewDashboard(cfg Config, deps Deps) *Dashboard {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Rand == nil {
		deps.Rand = sim.NewRand(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.OnChange == nil {
		deps.OnChange = func(Snapshot) {}
	}
	return &Dashboard{
		cfg:      cfg.withDefaults(),
		dmap:     deps.Map,
		notifier: deps.Notifier,
		ops:      deps.Ops,
		rng:      deps.Rand,
		logger:   deps.Logger.With("component", "driver_dashboard"),
		onChange: deps.OnChange,
		group:    schedule.NewGroup(context.Background()),
		location: transit.LocationWaiting,
	}
}

// Snapshot returns the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// SelectRoute chooses the route for the next trip.
func (d *Dashboard) SelectRoute(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Active {
		return ErrRouteLocked
	}
	d.routeID = id
	if d.dmap != nil {
		d.dmap.SetRoute(id)
	}
	d.publishLocked()
	return nil
}

// Start begins a trip on the selected route.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.routeID == "" {
		d.notifier.Notify(ctx, notify.Error("Route Required", "Please select a route before starting your trip."))
		return ErrRouteRequired
	}
	if d.state == Active {
		return ErrTripActive
	}

	d.state = Active
	d.elapsed = 0
	d.location = transit.LocationDepot
	d.ticker = d.group.Every(d.cfg.TickInterval, d.tick)
	d.signal = d.group.Every(d.cfg.SignalInterval, d.refreshSignal)

	n := notify.Info("Trip Started", "Now tracking "+d.routeNameLocked())
	d.notifier.Notify(ctx, n)
	if d.ops != nil {
		d.ops.Notify(ctx, n)
	}
	metrics.RecordTripStarted(ctx, d.routeID)
	d.logger.Info("Trip started", "route", d.routeID)

	if d.dmap != nil {
		d.dmap.SetActive(true)
	}
	d.publishLocked()
	return nil
}

// End finishes the active trip and reports its duration.
func (d *Dashboard) End(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Active {
		return ErrTripNotActive
	}

	d.ticker.Stop()
	d.signal.Stop()
	d.ticker, d.signal = nil, nil

	total := d.elapsed
	d.state = Ended
	d.passengers = 0
	d.location = transit.LocationEnded

	n := notify.Info("Trip Ended", "Total trip duration: "+formatMinutes(total))
	d.notifier.Notify(ctx, n)
	if d.ops != nil {
		d.ops.Notify(ctx, n)
	}
	metrics.RecordTripEnded(ctx, d.routeID, total)
	d.logger.Info("Trip ended", "route", d.routeID, "seconds", total)

	d.elapsed = 0
	if d.dmap != nil {
		d.dmap.SetActive(false)
	}
	d.publishLocked()
	return nil
}

// Close stops every timer of the dashboard and its map and waits for them.
func (d *Dashboard) Close() {
	d.group.Close()
	if d.dmap != nil {
		d.dmap.Close()
	}
}

func (d *Dashboard) tick(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx.Err() != nil || d.state != Active {
		return
	}
	d.elapsed++
	d.publishLocked()
}

func (d *Dashboard) refreshSignal(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx.Err() != nil || d.state != Active {
		return
	}
	d.passengers = d.rng.IntN(25) + 5
	d.location = sim.Pick(d.rng, transit.DriverLocations())
	d.publishLocked()
}

func (d *Dashboard) routeNameLocked() string {
	if r, ok := transit.LookupRoute(d.routeID); ok {
		return r.Name
	}
	return d.routeID
}

func (d *Dashboard) snapshotLocked() Snapshot {
	return Snapshot{
		State:       d.state,
		Badge:       d.state.Badge(),
		RouteID:     d.routeID,
		RouteName:   d.routeNameLocked(),
		Elapsed:     d.elapsed,
		ElapsedText: FormatDuration(d.elapsed),
		Location:    d.location,
		Passengers:  d.passengers,
		GPS:         d.state == Active,
	}
}

func (d *Dashboard) publishLocked() {
	d.onChange(d.snapshotLocked())
}

// FormatDuration renders seconds as H:MM:SS from one hour up, else M:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatMinutes renders seconds as M:SS without folding minutes into hours.
func formatMinutes(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
