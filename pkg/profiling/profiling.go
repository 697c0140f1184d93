package profiling

import (
	"log/slog"
	"os"
	"strings"

	"transittrack/pkg/otel"

	"github.com/grafana/pyroscope-go"
)

// Init starts continuous profiling when PYROSCOPE_PROFILING_ENABLED is set.
func Init() (func(), error) {
	if !isTrue(getEnv("PYROSCOPE_PROFILING_ENABLED", "false")) {
		slog.Debug("Pyroscope profiling is disabled")
		return func() {}, nil
	}

	serverAddress := getEnv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	applicationName := getEnv("PYROSCOPE_APPLICATION_NAME", otel.ServiceName)

	config := pyroscope.Config{
		ApplicationName: applicationName,
		ServerAddress:   serverAddress,
		Logger:          pyroscope.StandardLogger,
		Tags: map[string]string{
			"service": otel.ServiceName,
			"version": otel.Version,
		},
	}
	if user, pass := getEnv("PYROSCOPE_BASIC_AUTH_USER", ""), getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""); user != "" && pass != "" {
		config.BasicAuthUser = user
		config.BasicAuthPassword = pass
	}

	profiler, err := pyroscope.Start(config)
	if err != nil {
		slog.Warn("Failed to start Pyroscope profiler", "error", err)
		return func() {}, nil
	}
	slog.Debug("Pyroscope profiling started", "server", serverAddress, "application", applicationName)

	return func() {
		if err := profiler.Stop(); err != nil {
			slog.Error("Error stopping Pyroscope profiler", "error", err)
		}
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
