package otel

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Protocol is the OTLP transport.
type Protocol string

const (
	ProtocolGRPC         Protocol = "grpc"
	ProtocolHTTPProtobuf Protocol = "http/protobuf"
)

// SignalType is the OTEL signal an exporter carries.
type SignalType string

const (
	SignalTraces  SignalType = "traces"
	SignalMetrics SignalType = "metrics"
)

// ExporterConfig is the resolved OTLP exporter configuration for a signal.
type ExporterConfig struct {
	Endpoint    string
	Protocol    Protocol
	Headers     map[string]string
	Timeout     time.Duration
	Insecure    bool
	Compression string
}

func IsTracingEnabled() bool {
	return isTrue(getEnv("OTEL_TRACING_ENABLED", "false"))
}

func IsMetricsEnabled() bool {
	return isTrue(getEnv("OTEL_METRICS_ENABLED", "false"))
}

// GetExporterConfig resolves OTEL_EXPORTER_OTLP_<SIGNAL>_* variables with
// fallback to the signal-less OTEL_EXPORTER_OTLP_* ones.
func GetExporterConfig(signal SignalType) ExporterConfig {
	upper := strings.ToUpper(string(signal))

	protocol := ProtocolHTTPProtobuf
	if strings.EqualFold(getEnvWithFallback("OTEL_EXPORTER_OTLP_"+upper+"_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL", ""), "grpc") {
		protocol = ProtocolGRPC
	}

	endpoint := resolveEndpoint(signal, upper, protocol)

	insecure := strings.HasPrefix(endpoint, "http://")
	if v := getEnvWithFallback("OTEL_EXPORTER_OTLP_"+upper+"_INSECURE", "OTEL_EXPORTER_OTLP_INSECURE", ""); v != "" {
		insecure = isTrue(v)
	}

	return ExporterConfig{
		Endpoint: endpoint,
		Protocol: protocol,
		Headers:  parseHeaders(getEnvWithFallback("OTEL_EXPORTER_OTLP_"+upper+"_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS", "")),
		Timeout: parseDuration(getEnvWithFallback(
			"OTEL_EXPORTER_OTLP_"+upper+"_TIMEOUT", "OTEL_EXPORTER_OTLP_TIMEOUT", "10s"), 10*time.Second),
		Insecure:    insecure,
		Compression: getEnvWithFallback("OTEL_EXPORTER_OTLP_"+upper+"_COMPRESSION", "OTEL_EXPORTER_OTLP_COMPRESSION", ""),
	}
}

func resolveEndpoint(signal SignalType, upper string, protocol Protocol) string {
	if ep := getEnv("OTEL_EXPORTER_OTLP_"+upper+"_ENDPOINT", ""); ep != "" {
		return normalizeEndpoint(ep, protocol)
	}
	if base := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""); base != "" {
		ep := normalizeEndpoint(base, protocol)
		if protocol == ProtocolGRPC {
			return ep
		}
		return appendSignalPath(ep, signal)
	}
	if protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "http://localhost:4318/v1/" + string(signal)
}

func normalizeEndpoint(endpoint string, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

func appendSignalPath(endpoint string, signal SignalType) string {
	signalPath := "/v1/" + string(signal)
	u, err := url.Parse(endpoint)
	if err != nil {
		return strings.TrimSuffix(endpoint, "/") + signalPath
	}
	if strings.HasSuffix(u.Path, signalPath) {
		return endpoint
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + signalPath
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvWithFallback(specific, base, defaultValue string) string {
	if value := os.Getenv(specific); value != "" {
		return value
	}
	return getEnv(base, defaultValue)
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseHeaders parses "k1=v1,k2=v2". Values keep everything after the first '='.
func parseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if idx := strings.Index(pair, "="); idx > 0 {
			headers[strings.TrimSpace(pair[:idx])] = pair[idx+1:]
		}
	}
	return headers
}

// parseDuration accepts Go durations ("10s") and OTEL milliseconds ("10000").
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
