package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"transittrack/pkg/mapwidget"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MapsKeyEnv overrides maps.api_key when the file leaves it unset.
const MapsKeyEnv = "TRANSITTRACK_MAPS_API_KEY"

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:              8080,
			ShutdownTimeoutMS: 10_000,
		},
		Maps: MapsConfig{
			APIKey: mapwidget.PlaceholderKey,
			SDKURL: mapwidget.DefaultSDKURL,
		},
		Simulation: SimulationConfig{
			FleetIntervalMS:   5_000,
			TripTickMS:        1_000,
			SignalIntervalMS:  10_000,
			AdvanceIntervalMS: 15_000,
			FeedIntervalMS:    5_000,
		},
	}
}

// Load reads path (yaml or toml, chosen by extension) over the defaults and
// validates the result. A path that does not exist is not an error.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if mapwidget.IsPlaceholder(cfg.Maps.APIKey) {
		if v := os.Getenv(MapsKeyEnv); v != "" {
			cfg.Maps.APIKey = v
		} else {
			cfg.Maps.APIKey = mapwidget.PlaceholderKey
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *AppConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yml", ".yaml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Validate checks the struct tags of every section.
func Validate(cfg AppConfig) error {
	v := validator.New()
	for _, section := range []any{cfg.Server, cfg.Maps, cfg.Simulation, cfg.Slack} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
