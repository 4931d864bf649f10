package instrumentation

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the library.
type Metrics struct {
	// Token lifecycle
	CodeExchanged  metric.Int64Counter
	TokenRefreshed metric.Int64Counter
	TokenEvicted   metric.Int64Counter
	RenewalFired   metric.Int64Counter

	// Role cache
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter
	CacheSweeps metric.Int64Counter

	// API binding
	APIRequestsTotal   metric.Int64Counter
	APIRequestDuration metric.Float64Histogram
	RoleMutations      metric.Int64Counter

	// Storage
	StorageOperationTotal    metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram
}

func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	authMeter := inst.Meter("auth")
	rolesMeter := inst.Meter("roles")
	apiMeter := inst.Meter("api")
	storageMeter := inst.Meter("storage")

	var err error
	m.CodeExchanged, err = authMeter.Int64Counter(
		"helix.auth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = authMeter.Int64Counter(
		"helix.auth.token.refreshed",
		metric.WithDescription("Number of token refreshes, by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenEvicted, err = authMeter.Int64Counter(
		"helix.auth.token.evicted",
		metric.WithDescription("Number of tokens evicted after a terminal refresh rejection"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.evicted counter: %w", err)
	}

	m.RenewalFired, err = authMeter.Int64Counter(
		"helix.auth.renewal.fired",
		metric.WithDescription("Number of scheduled renewal timers fired"),
		metric.WithUnit("{renewal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create renewal.fired counter: %w", err)
	}

	m.CacheHits, err = rolesMeter.Int64Counter(
		"helix.roles.cache.hits",
		metric.WithDescription("Number of sweeps served from the cache, by relation kind"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.hits counter: %w", err)
	}

	m.CacheMisses, err = rolesMeter.Int64Counter(
		"helix.roles.cache.misses",
		metric.WithDescription("Number of sweeps that went to the vendor, by relation kind"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.misses counter: %w", err)
	}

	m.CacheSweeps, err = rolesMeter.Int64Counter(
		"helix.roles.cache.sweeps",
		metric.WithDescription("Number of full pagination sweeps completed"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache.sweeps counter: %w", err)
	}

	m.APIRequestsTotal, err = apiMeter.Int64Counter(
		"helix.api.requests.total",
		metric.WithDescription("Total number of Helix API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api.requests.total counter: %w", err)
	}

	m.APIRequestDuration, err = apiMeter.Float64Histogram(
		"helix.api.request.duration",
		metric.WithDescription("Helix API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api.request.duration histogram: %w", err)
	}

	m.RoleMutations, err = apiMeter.Int64Counter(
		"helix.api.role.mutations",
		metric.WithDescription("Number of role grant/revoke calls, by kind and action"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create role.mutations counter: %w", err)
	}

	m.StorageOperationTotal, err = storageMeter.Int64Counter(
		"helix.storage.operation.total",
		metric.WithDescription("Total number of token store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.total counter: %w", err)
	}

	m.StorageOperationDuration, err = storageMeter.Float64Histogram(
		"helix.storage.operation.duration",
		metric.WithDescription("Token store operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	return m, nil
}
