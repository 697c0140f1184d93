// Package config loads the server configuration.
//
// Configuration is read from config.yml (or config.toml), defaulted, and
// validated using struct tags. A missing file yields the defaults.
package config
