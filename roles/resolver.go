package roles

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/api"
	"github.com/streamkit/helix/instrumentation"
)

// HelixAPI is the vendor binding the resolver consumes. The
// api.Client satisfies it.
type HelixAPI interface {
	UsersByID(ctx context.Context, accessToken string, ids []helix.Principal) ([]helix.User, error)
	UsersByLogin(ctx context.Context, accessToken string, logins []string) ([]helix.User, error)

	Moderators(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]api.RoleEntry, string, error)
	VIPs(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]api.RoleEntry, string, error)
	Editors(ctx context.Context, accessToken string, broadcaster helix.Principal) ([]api.RoleEntry, error)
	Subscriptions(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]api.SubscriptionEntry, string, error)
	Followers(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]api.FollowerEntry, string, error)

	AddModerator(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error
	RemoveModerator(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error
	AddVIP(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error
	RemoveVIP(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error
}

// TokenSource supplies scoped access tokens for a principal. The
// auth.Manager satisfies it.
type TokenSource interface {
	GetAccessToken(ctx context.Context, id helix.Principal, scopes ...helix.Scope) (string, error)
}

// Resolver answers role relationship queries for channels, caching
// full relation sets per channel and kind.
type Resolver struct {
	api    HelixAPI
	tokens TokenSource
	logger *slog.Logger
	inst   *instrumentation.Instrumentation
	tracer trace.Tracer

	mu          sync.RWMutex
	moderators  map[helix.Principal][]helix.RelationRecord
	vips        map[helix.Principal][]helix.RelationRecord
	subscribers map[helix.Principal][]helix.RelationRecord
	followers   map[helix.Principal][]helix.RelationRecord
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithInstrumentation attaches OpenTelemetry instrumentation and
// registers the cache size gauges.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(r *Resolver) {
		r.inst = inst
		r.tracer = inst.Tracer("roles")
	}
}

// NewResolver creates a role resolver over the given vendor binding
// and token source.
func NewResolver(helixAPI HelixAPI, tokens TokenSource, opts ...Option) *Resolver {
	r := &Resolver{
		api:         helixAPI,
		tokens:      tokens,
		logger:      slog.Default(),
		tracer:      tracenoop.NewTracerProvider().Tracer(""),
		moderators:  make(map[helix.Principal][]helix.RelationRecord),
		vips:        make(map[helix.Principal][]helix.RelationRecord),
		subscribers: make(map[helix.Principal][]helix.RelationRecord),
		followers:   make(map[helix.Principal][]helix.RelationRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.inst != nil {
		if err := r.inst.RegisterCacheSizeCallbacks(
			r.cacheSize(&r.moderators),
			r.cacheSize(&r.vips),
			r.cacheSize(&r.subscribers),
			r.cacheSize(&r.followers),
		); err != nil {
			r.logger.Warn("failed to register cache size gauges", "error", err)
		}
	}
	return r
}

func (r *Resolver) cacheSize(cache *map[helix.Principal][]helix.RelationRecord) instrumentation.SizeCallback {
	return func() int64 {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return int64(len(*cache))
	}
}

// cacheFor maps a relation kind to its cache. Editors are never
// cached: the endpoint is unpaginated and always refetched.
func (r *Resolver) cacheFor(kind helix.RelationKind) map[helix.Principal][]helix.RelationRecord {
	switch kind {
	case helix.KindModerator:
		return r.moderators
	case helix.KindVIP:
		return r.vips
	case helix.KindSubscriber:
		return r.subscribers
	case helix.KindFollower:
		return r.followers
	default:
		return nil
	}
}

// cachedRecords returns a copy of the cached entry for a channel.
func (r *Resolver) cachedRecords(kind helix.RelationKind, channel helix.Principal) ([]helix.RelationRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records, ok := r.cacheFor(kind)[channel]
	if !ok {
		return nil, false
	}
	return append([]helix.RelationRecord(nil), records...), true
}

// replaceEntry atomically replaces the cached entry for a channel.
func (r *Resolver) replaceEntry(kind helix.RelationKind, channel helix.Principal, records []helix.RelationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheFor(kind)[channel] = records
}

// ClearModeratorCache drops all cached moderator entries.
func (r *Resolver) ClearModeratorCache() { r.clear(helix.KindModerator) }

// ClearVIPCache drops all cached VIP entries.
func (r *Resolver) ClearVIPCache() { r.clear(helix.KindVIP) }

// ClearSubscriberCache drops all cached subscriber entries.
func (r *Resolver) ClearSubscriberCache() { r.clear(helix.KindSubscriber) }

// ClearFollowerCache drops all cached follower entries.
func (r *Resolver) ClearFollowerCache() { r.clear(helix.KindFollower) }

// ClearCaches drops every cached entry of every kind.
func (r *Resolver) ClearCaches() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderators = make(map[helix.Principal][]helix.RelationRecord)
	r.vips = make(map[helix.Principal][]helix.RelationRecord)
	r.subscribers = make(map[helix.Principal][]helix.RelationRecord)
	r.followers = make(map[helix.Principal][]helix.RelationRecord)
}

func (r *Resolver) clear(kind helix.RelationKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache := r.cacheFor(kind)
	for channel := range cache {
		delete(cache, channel)
	}
}

// ModeratorCache returns a copy of the cached moderator relation sets.
func (r *Resolver) ModeratorCache() map[helix.Principal][]helix.RelationRecord {
	return r.snapshot(helix.KindModerator)
}

// VIPCache returns a copy of the cached VIP relation sets.
func (r *Resolver) VIPCache() map[helix.Principal][]helix.RelationRecord {
	return r.snapshot(helix.KindVIP)
}

// SubscriberCache returns a copy of the cached subscriber relation sets.
func (r *Resolver) SubscriberCache() map[helix.Principal][]helix.RelationRecord {
	return r.snapshot(helix.KindSubscriber)
}

// FollowerCache returns a copy of the cached follower relation sets.
func (r *Resolver) FollowerCache() map[helix.Principal][]helix.RelationRecord {
	return r.snapshot(helix.KindFollower)
}

func (r *Resolver) snapshot(kind helix.RelationKind) map[helix.Principal][]helix.RelationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cache := r.cacheFor(kind)
	out := make(map[helix.Principal][]helix.RelationRecord, len(cache))
	for channel, records := range cache {
		out[channel] = append([]helix.RelationRecord(nil), records...)
	}
	return out
}

func (r *Resolver) countCache(counter func(*instrumentation.Metrics) metric.Int64Counter, kind helix.RelationKind) {
	if r.inst == nil {
		return
	}
	counter(r.inst.Metrics()).Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(instrumentation.AttrKind, kind.String())))
}
