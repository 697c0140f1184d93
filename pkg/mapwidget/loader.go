// Package mapwidget is the boundary to the hosted map SDK: credential
// checks, SDK load probing, and the drawing surface sessions render onto.
package mapwidget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"transittrack/pkg/metrics"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PlaceholderKey marks an unconfigured credential.
const PlaceholderKey = "YOUR_GOOGLE_MAPS_API_KEY_HERE"

// DefaultSDKURL is the Maps JavaScript SDK bootstrap script.
const DefaultSDKURL = "https://maps.googleapis.com/maps/api/js"

// ErrLoad wraps every widget load failure.
var ErrLoad = errors.New("map widget failed to load")

// IsPlaceholder reports whether key is empty or the placeholder sentinel.
func IsPlaceholder(key string) bool {
	return key == "" || key == PlaceholderKey
}

// Loader loads the map SDK for a credential.
type Loader interface {
	Load(ctx context.Context, credential string) error
}

type LoaderFunc func(ctx context.Context, credential string) error

func (f LoaderFunc) Load(ctx context.Context, credential string) error {
	return f(ctx, credential)
}

// Offline accepts every non-placeholder credential without network access.
var Offline Loader = LoaderFunc(func(_ context.Context, credential string) error {
	if IsPlaceholder(credential) {
		return fmt.Errorf("%w: no credential", ErrLoad)
	}
	return nil
})

// Probe runs l and normalises its error to wrap ErrLoad.
func Probe(ctx context.Context, l Loader, credential string) error {
	err := l.Load(ctx, credential)
	metrics.RecordMapLoad(ctx, err == nil)
	if err != nil && !errors.Is(err, ErrLoad) {
		err = fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return err
}

// HTTPLoader checks that the SDK script is served for a credential.
// Accepted credentials are cached for cacheTTL.
type HTTPLoader struct {
	httpClient *http.Client
	sdkURL     string
	accepted   *cache.Cache
	tracer     trace.Tracer
}

const cacheTTL = 30 * time.Minute

func NewHTTPLoader(sdkURL string) *HTTPLoader {
	if sdkURL == "" {
		sdkURL = DefaultSDKURL
	}
	return &HTTPLoader{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		sdkURL:   sdkURL,
		accepted: cache.New(cacheTTL, 2*cacheTTL),
		tracer:   otel.Tracer("mapwidget-loader"),
	}
}

func (l *HTTPLoader) Load(ctx context.Context, credential string) error {
	if IsPlaceholder(credential) {
		return fmt.Errorf("%w: no credential", ErrLoad)
	}
	if _, ok := l.accepted.Get(credential); ok {
		return nil
	}

	ctx, span := l.tracer.Start(ctx, "mapwidget.load",
		trace.WithAttributes(attribute.String("sdk.url", l.sdkURL)),
	)
	defer span.End()

	q := url.Values{}
	q.Set("key", credential)
	q.Set("v", "weekly")
	q.Set("libraries", "maps")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.sdkURL+"?"+q.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: sdk returned status %d", ErrLoad, resp.StatusCode)
		span.RecordError(err)
		return err
	}

	l.accepted.SetDefault(credential, struct{}{})
	return nil
}
