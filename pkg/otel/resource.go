package otel

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const ServiceName = "transittrack"

// Version is set at build time:
// go build -ldflags="-X transittrack/pkg/otel.Version=1.2.3"
var Version = "dev"

func serviceInstanceID() string {
	if id := os.Getenv("OTEL_SERVICE_INSTANCE_ID"); id != "" {
		return id
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("%s-%d", ServiceName, os.Getpid())
}

// NewResource is shared by the tracer and meter providers.
func NewResource() (*resource.Resource, error) {
	return resource.New(context.Background(),
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(Version),
			semconv.ServiceNamespace(getEnv("OTEL_SERVICE_NAMESPACE", ServiceName)),
			semconv.ServiceInstanceID(serviceInstanceID()),
			semconv.DeploymentEnvironment(getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development")),
			semconv.ProcessRuntimeName("go"),
			semconv.ProcessRuntimeVersion(runtime.Version()),
		),
	)
}
