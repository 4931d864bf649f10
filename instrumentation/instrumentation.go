package instrumentation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceVersion is used when no version is provided.
const DefaultServiceVersion = "unknown"

// Config holds instrumentation configuration.
type Config struct {
	// ServiceName identifies the service (e.g. "helixd").
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Enabled controls whether instrumentation is active. When
	// false, no-op providers are used.
	Enabled bool

	// Resource allows custom resource attributes. If nil, a default
	// resource is built from the service name and version.
	Resource *resource.Resource
}

// Instrumentation provides OpenTelemetry instrumentation components.
type Instrumentation struct {
	config   Config
	resource *resource.Resource

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	metrics *Metrics

	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates a new instrumentation instance.
func New(config Config) (*Instrumentation, error) {
	if config.ServiceName == "" {
		config.ServiceName = "helix"
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = DefaultServiceVersion
	}

	res := config.Resource
	if res == nil {
		var err error
		res, err = resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(config.ServiceName),
				semconv.ServiceVersion(config.ServiceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}
	}

	inst := &Instrumentation{
		config:   config,
		resource: res,
	}

	// No exporters are wired yet, so both paths use no-op providers;
	// the Enabled switch keeps the call sites stable for when they are.
	inst.meterProvider = noop.NewMeterProvider()
	inst.tracerProvider = tracenoop.NewTracerProvider()

	var err error
	inst.metrics, err = newMetrics(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return inst, nil
}

// Shutdown gracefully shuts down all instrumentation providers.
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	var shutdownErr error

	i.shutdownOnce.Do(func() {
		for _, fn := range i.shutdownFuncs {
			if err := fn(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
	})

	return shutdownErr
}

// Meter returns a named meter for the given scope. Scopes are layer
// names like "auth", "roles", "api", "storage".
func (i *Instrumentation) Meter(scope string) metric.Meter {
	return i.meterProvider.Meter("github.com/streamkit/helix/" + scope)
}

// Tracer returns a named tracer for the given scope.
func (i *Instrumentation) Tracer(scope string) trace.Tracer {
	return i.tracerProvider.Tracer("github.com/streamkit/helix/" + scope)
}

// Metrics returns the metrics holder for recording metric values.
func (i *Instrumentation) Metrics() *Metrics {
	return i.metrics
}

// MeterProvider returns the underlying meter provider.
func (i *Instrumentation) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

// TracerProvider returns the underlying tracer provider.
func (i *Instrumentation) TracerProvider() trace.TracerProvider {
	return i.tracerProvider
}

// SizeCallback reports the current size of a component, e.g. the
// number of stored tokens or cached channel entries.
type SizeCallback func() int64

// RegisterCacheSizeCallbacks registers gauges for the role cache
// sizes. The resolver calls this once instrumentation is attached.
func (i *Instrumentation) RegisterCacheSizeCallbacks(moderators, vips, subscribers, followers SizeCallback) error {
	meter := i.Meter("roles")

	gauges := []struct {
		name string
		fn   SizeCallback
	}{
		{"helix.roles.cache.moderator_channels", moderators},
		{"helix.roles.cache.vip_channels", vips},
		{"helix.roles.cache.subscriber_channels", subscribers},
		{"helix.roles.cache.follower_channels", followers},
	}

	for _, g := range gauges {
		gauge, err := meter.Int64ObservableGauge(
			g.name,
			metric.WithDescription("Number of channels with a cached entry"),
			metric.WithUnit("{channel}"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s gauge: %w", g.name, err)
		}
		fn := g.fn
		_, err = meter.RegisterCallback(
			func(_ context.Context, observer metric.Observer) error {
				observer.ObserveInt64(gauge, fn())
				return nil
			},
			gauge,
		)
		if err != nil {
			return fmt.Errorf("failed to register %s callback: %w", g.name, err)
		}
	}

	return nil
}
