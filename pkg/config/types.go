package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port              int `yaml:"port" toml:"port" validate:"gt=0,lte=65535"`
	ShutdownTimeoutMS int `yaml:"shutdown_timeout_ms" toml:"shutdown_timeout_ms" validate:"gte=0"`
}

// MapsConfig contains hosted map widget configuration
type MapsConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
	SDKURL string `yaml:"sdk_url" toml:"sdk_url" validate:"required,url"`
	// Offline skips probing the SDK; any non-placeholder key counts as loaded.
	Offline bool `yaml:"offline" toml:"offline"`
}

// SimulationConfig contains the demo timers. Intervals are in milliseconds.
type SimulationConfig struct {
	Seed              uint64 `yaml:"seed" toml:"seed"`
	FleetIntervalMS   int    `yaml:"fleet_interval_ms" toml:"fleet_interval_ms" validate:"gt=0"`
	TripTickMS        int    `yaml:"trip_tick_ms" toml:"trip_tick_ms" validate:"gt=0"`
	SignalIntervalMS  int    `yaml:"signal_interval_ms" toml:"signal_interval_ms" validate:"gt=0"`
	AdvanceIntervalMS int    `yaml:"advance_interval_ms" toml:"advance_interval_ms" validate:"gt=0"`
	FeedIntervalMS    int    `yaml:"feed_interval_ms" toml:"feed_interval_ms" validate:"gt=0"`
}

// SlackConfig contains the operations channel trip events are mirrored to
type SlackConfig struct {
	Token   string `yaml:"token" toml:"token"`
	Channel string `yaml:"channel" toml:"channel" validate:"required_with=Token"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Maps       MapsConfig       `yaml:"maps" toml:"maps"`
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	Slack      SlackConfig      `yaml:"slack" toml:"slack"`
	CORS       CORSConfig       `yaml:"cors" toml:"cors"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (s ServerConfig) ShutdownTimeout() time.Duration { return ms(s.ShutdownTimeoutMS) }

func (s SimulationConfig) FleetInterval() time.Duration   { return ms(s.FleetIntervalMS) }
func (s SimulationConfig) TripTick() time.Duration        { return ms(s.TripTickMS) }
func (s SimulationConfig) SignalInterval() time.Duration  { return ms(s.SignalIntervalMS) }
func (s SimulationConfig) AdvanceInterval() time.Duration { return ms(s.AdvanceIntervalMS) }
func (s SimulationConfig) FeedInterval() time.Duration    { return ms(s.FeedIntervalMS) }
