// Package livemap drives the passenger fleet map: credential gating, SDK
// loading and the periodic marker jitter of a session-owned fleet.
package livemap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"transittrack/pkg/fleet"
	"transittrack/pkg/geo"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/notify"
	"transittrack/pkg/schedule"
	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
)

// ErrCredentialRequired is returned when a blank or placeholder key is submitted.
var ErrCredentialRequired = errors.New("map credential required")

type Config struct {
	Credential     string
	JitterInterval time.Duration
	Center         geo.Point
	Zoom           int
}

func (c Config) withDefaults() Config {
	if c.JitterInterval <= 0 {
		c.JitterInterval = 5 * time.Second
	}
	if c.Center == (geo.Point{}) {
		c.Center = transit.MapCenter
	}
	if c.Zoom == 0 {
		c.Zoom = 12
	}
	return c
}

// Deps are the collaborators of a session. Nil fields get harmless defaults.
type Deps struct {
	Surface  mapwidget.Surface
	Notifier notify.Notifier
	Loader   mapwidget.Loader
	Rand     sim.Rand
	Logger   *slog.Logger
}

// Session is one live map view.
type Session struct {
	cfg      Config
	surface  mapwidget.Surface
	notifier notify.Notifier
	loader   mapwidget.Loader
	logger   *slog.Logger
	fleet    *fleet.Fleet
	group    *schedule.Group

	mu         sync.Mutex
	credential string
	loaded     bool
	generation int
	jitter     *schedule.Task
}

func New(cfg Config, deps Deps) *Session {
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
	return &Session{
		cfg:        cfg,
		surface:    deps.Surface,
		notifier:   deps.Notifier,
		loader:     deps.Loader,
		logger:     deps.Logger.With("component", "livemap"),
		fleet:      fleet.New("livemap", deps.Rand),
		group:      schedule.NewGroup(context.Background()),
		credential: cfg.Credential,
	}
}

// Open shows the credential form, or starts loading the map when a real
// credential is already configured.
func (s *Session) Open(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mapwidget.IsPlaceholder(s.credential) {
		s.surface.ShowCredentialForm()
		return
	}
	s.startLoadLocked()
}

// SubmitCredential stores key and loads the map with it.
func (s *Session) SubmitCredential(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if mapwidget.IsPlaceholder(key) {
		s.notifier.Notify(ctx, notify.Error("API Key Required", "Please enter a valid Google Maps API key."))
		return ErrCredentialRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.credential = key
	s.startLoadLocked()
	return nil
}

// ChangeCredential removes the map and asks for a new key.
func (s *Session) ChangeCredential(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.surface.Clear()
	s.surface.ShowCredentialForm()
}

// Close stops every task of the session and waits for them.
func (s *Session) Close() {
	s.group.Close()
}

// Vehicles returns the session's current fleet.
func (s *Session) Vehicles() []transit.Vehicle {
	return s.fleet.Snapshot()
}

// Loaded reports whether the map widget is up.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Session) teardownLocked() {
	s.generation++
	s.jitter.Stop()
	s.jitter = nil
	s.loaded = false
}

func (s *Session) startLoadLocked() {
	s.generation++
	gen, key := s.generation, s.credential
	s.group.Go(func(ctx context.Context) {
		err := mapwidget.Probe(ctx, s.loader, key)
		s.finishLoad(ctx, gen, err)
	})
}

func (s *Session) finishLoad(ctx context.Context, gen int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || gen != s.generation {
		return
	}

	if err != nil {
		s.logger.Error("Error loading map widget", "error", err)
		s.notifier.Notify(ctx, notify.Error("Map Error", "Failed to load Google Maps. Please check your API key."))
		s.surface.Clear()
		return
	}

	s.surface.CreateMap(mapwidget.MapOptions{
		APIKey: s.credential,
		Center: s.cfg.Center,
		Zoom:   s.cfg.Zoom,
		Styles: mapwidget.TransitStyle,
	})
	for _, v := range s.fleet.Snapshot() {
		s.surface.AddMarker(mapwidget.VehicleMarker(v))
	}
	s.loaded = true
	s.notifier.Notify(ctx, notify.Info("Map Loaded", "Google Maps loaded successfully with live bus tracking!"))

	s.jitter = s.group.Every(s.cfg.JitterInterval, s.cycle)
	s.logger.Debug("Live map loaded", "vehicles", s.fleet.Len())
}

func (s *Session) cycle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || !s.loaded {
		return
	}
	for _, v := range s.fleet.Cycle(ctx) {
		s.surface.MoveMarker(v.ID, v.Position)
	}
}
