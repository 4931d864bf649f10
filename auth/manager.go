package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/instrumentation"
	"github.com/streamkit/helix/storage"
)

const (
	// defaultExchangeTimeout bounds the vendor calls a renewal timer
	// makes outside any caller context.
	defaultExchangeTimeout = 30 * time.Second

	// defaultRetryInterval is how long a renewal waits after a
	// transient refresh failure before trying again.
	defaultRetryInterval = time.Minute
)

// IdentityResolver resolves the principal an access token belongs to.
// The api.Client satisfies this with its bearer-only /users lookup.
type IdentityResolver interface {
	Self(ctx context.Context, accessToken string) (helix.User, error)
}

// CredentialSink receives the current access/refresh token pair for a
// principal every time it changes. Sinks must not block.
type CredentialSink interface {
	UpdateCredentials(id helix.Principal, accessToken, refreshToken string)
}

// Manager is the token lifecycle manager. It exchanges authorization
// codes, persists tokens through a TokenStore, refreshes them, and
// keeps one cancellable renewal timer per principal.
type Manager struct {
	oauth    *oauth2.Config
	store    storage.TokenStore
	resolver IdentityResolver
	sinks    []CredentialSink
	logger   *slog.Logger
	inst     *instrumentation.Instrumentation
	tracer   trace.Tracer

	httpClient      *http.Client
	exchangeTimeout time.Duration
	retryInterval   time.Duration

	mu     sync.Mutex
	timers map[helix.Principal]renewalTimer
	seq    uint64
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSink registers a credential sink notified on every token change.
func WithSink(sink CredentialSink) Option {
	return func(m *Manager) { m.sinks = append(m.sinks, sink) }
}

// WithInstrumentation attaches OpenTelemetry instrumentation.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(m *Manager) {
		m.inst = inst
		m.tracer = inst.Tracer("auth")
	}
}

// WithEndpoint overrides the OAuth2 endpoint, typically for tests.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(m *Manager) { m.oauth.Endpoint = endpoint }
}

// WithRetryInterval sets the wait after a transient refresh failure
// before the renewal timer tries again.
func WithRetryInterval(d time.Duration) Option {
	return func(m *Manager) { m.retryInterval = d }
}

// NewManager creates a token lifecycle manager. The store holds the
// encrypted tokens; the resolver maps fresh access tokens to the
// principal they were issued for.
func NewManager(cfg helix.Config, store storage.TokenStore, resolver IdentityResolver, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Twitch,
		},
		store:           store,
		resolver:        resolver,
		logger:          logger,
		tracer:          tracenoop.NewTracerProvider().Tracer(""),
		httpClient:      cfg.HTTPClient,
		exchangeTimeout: defaultExchangeTimeout,
		retryInterval:   defaultRetryInterval,
		timers:          make(map[helix.Principal]renewalTimer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// oauthContext injects the configured HTTP client into the oauth2
// transport.
func (m *Manager) oauthContext(ctx context.Context) context.Context {
	if m.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}
	return ctx
}

// AuthorizationURL builds the URL a user visits to authorize the
// application for the given scopes. Duplicate scopes are collapsed.
func (m *Manager) AuthorizationURL(scopes ...helix.Scope) string {
	cfg := *m.oauth
	for _, s := range helix.DedupeScopes(scopes) {
		cfg.Scopes = append(cfg.Scopes, s.String())
	}
	return cfg.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for a token pair, resolves
// the principal it belongs to, persists it, and schedules its renewal.
// A rejected or malformed exchange yields *helix.AuthExchangeError and
// stores nothing.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (_ *helix.AuthToken, err error) {
	ctx, span := m.tracer.Start(ctx, "auth.exchange_code")
	defer span.End()
	defer func() { instrumentation.RecordError(span, err) }()

	tok, err := m.oauth.Exchange(m.oauthContext(ctx), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &helix.AuthExchangeError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
				Err:        err,
			}
		}
		return nil, &helix.AuthExchangeError{Err: err}
	}

	scopes, err := grantedScopes(tok)
	if err != nil {
		return nil, &helix.AuthExchangeError{Err: err}
	}

	user, err := m.resolver.Self(ctx, tok.AccessToken)
	if err != nil {
		// The exchange is not complete until the principal is known;
		// the caller sees one error type for the whole handshake.
		return nil, &helix.AuthExchangeError{Err: fmt.Errorf("failed to resolve token principal: %w", err)}
	}

	token := &helix.AuthToken{
		ID:           user.ID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       scopes,
		IssuedAt:     time.Now(),
		ExpiresIn:    tokenLifetime(tok),
	}

	if err := m.store.Put(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to persist token for principal %d: %w", token.ID, err)
	}

	m.notifySinks(token)
	m.schedule(token)
	m.countWith(func(x *instrumentation.Metrics) metric.Int64Counter { return x.CodeExchanged })
	instrumentation.AddTokenAttributes(span, int64(token.ID), token.ExpiresIn)
	instrumentation.SetSpanSuccess(span)
	m.logger.Info("authorization code exchanged",
		"principal", token.ID,
		"login", user.Login,
		"scopes", len(token.Scopes),
		"expires_in", token.ExpiresIn)
	return token, nil
}

// Refresh forces a refresh of the given token. On success the
// replacement (same principal id) is persisted, sinks are notified,
// and the next renewal is scheduled. A 400/401 rejection is terminal:
// the stored token is deleted, the renewal chain ends, and the error
// wraps helix.ErrInvalidRefreshToken. Any other failure is transient
// and leaves the stored token untouched.
func (m *Manager) Refresh(ctx context.Context, token *helix.AuthToken) (_ *helix.AuthToken, err error) {
	ctx, span := m.tracer.Start(ctx, "auth.refresh")
	defer span.End()
	defer func() { instrumentation.RecordError(span, err) }()

	// An already-expired Expiry forces TokenSource to hit the
	// refresh grant instead of returning the stale access token.
	source := m.oauth.TokenSource(m.oauthContext(ctx), &oauth2.Token{
		RefreshToken: token.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	})

	tok, err := source.Token()
	if err != nil {
		return nil, m.classifyRefreshFailure(ctx, token.ID, err)
	}

	scopes, err := grantedScopes(tok)
	if err != nil || len(scopes) == 0 {
		// Refresh responses keep the original grant when the scope
		// field is absent.
		scopes = token.Scopes
	}

	refreshed := &helix.AuthToken{
		ID:           token.ID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       scopes,
		IssuedAt:     time.Now(),
		ExpiresIn:    tokenLifetime(tok),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	if err := m.store.Put(ctx, refreshed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token for principal %d: %w", refreshed.ID, err)
	}

	m.notifySinks(refreshed)
	m.schedule(refreshed)
	m.countWith(func(x *instrumentation.Metrics) metric.Int64Counter { return x.TokenRefreshed },
		attribute.String(instrumentation.AttrOutcome, "success"))
	instrumentation.AddTokenAttributes(span, int64(refreshed.ID), refreshed.ExpiresIn)
	instrumentation.SetSpanSuccess(span)
	m.logger.Info("token refreshed",
		"principal", refreshed.ID,
		"expires_in", refreshed.ExpiresIn)
	return refreshed, nil
}

// classifyRefreshFailure separates terminal refresh rejections from
// transient ones. Terminal rejections evict the stored row and cancel
// the principal's renewal timer.
func (m *Manager) classifyRefreshFailure(ctx context.Context, id helix.Principal, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := retrieveErr.Response.StatusCode
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			m.cancelTimer(id)
			if delErr := m.store.Delete(ctx, id); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
				m.logger.Error("failed to evict invalid token",
					"principal", id,
					"error", delErr)
			}
			m.countWith(func(x *instrumentation.Metrics) metric.Int64Counter { return x.TokenRefreshed },
				attribute.String(instrumentation.AttrOutcome, "terminal"))
			m.countWith(func(x *instrumentation.Metrics) metric.Int64Counter { return x.TokenEvicted })
			m.logger.Warn("refresh token permanently rejected, token evicted",
				"principal", id,
				"status", status)
			return fmt.Errorf("principal %d: %w", id, helix.ErrInvalidRefreshToken)
		}
	}

	m.countWith(func(x *instrumentation.Metrics) metric.Int64Counter { return x.TokenRefreshed },
		attribute.String(instrumentation.AttrOutcome, "transient"))
	m.logger.Warn("transient refresh failure",
		"principal", id,
		"error", err)
	return &helix.TransientRefreshError{Principal: id, Err: err}
}

// GetAccessToken returns the stored access token for a principal,
// verifying it covers the required scopes. A missing row yields
// helix.ErrMissingToken; an uncovered scope set yields
// *helix.InsufficientScopeError.
func (m *Manager) GetAccessToken(ctx context.Context, id helix.Principal, scopes ...helix.Scope) (string, error) {
	token, err := m.Token(ctx, id)
	if err != nil {
		return "", err
	}
	if missing := token.MissingScopes(scopes...); len(missing) > 0 {
		return "", &helix.InsufficientScopeError{Principal: id, Missing: missing}
	}
	return token.AccessToken, nil
}

// Token returns the stored token for a principal, mapping a missing
// row to helix.ErrMissingToken.
func (m *Manager) Token(ctx context.Context, id helix.Principal) (*helix.AuthToken, error) {
	token, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("principal %d: %w", id, helix.ErrMissingToken)
		}
		return nil, err
	}
	return token, nil
}

// Tokens returns all stored tokens.
func (m *Manager) Tokens(ctx context.Context) ([]*helix.AuthToken, error) {
	return m.store.GetAll(ctx)
}

// Bootstrap refreshes every persisted token, pruning the permanently
// invalid ones and scheduling renewal for the rest. Call it once at
// startup. Transient failures leave the token stored with a retry
// timer pending; only unexpected store errors are returned.
func (m *Manager) Bootstrap(ctx context.Context) error {
	tokens, err := m.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored tokens: %w", err)
	}

	for _, token := range tokens {
		if _, err := m.Refresh(ctx, token); err != nil {
			if errors.Is(err, helix.ErrInvalidRefreshToken) {
				continue
			}
			var transient *helix.TransientRefreshError
			if errors.As(err, &transient) {
				m.scheduleRetry(token.ID)
				continue
			}
			return err
		}
	}

	m.logger.Info("token bootstrap complete", "tokens", len(tokens))
	return nil
}

// Close cancels all pending renewal timers. The manager must not be
// used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, pending := range m.timers {
		pending.timer.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) notifySinks(token *helix.AuthToken) {
	for _, sink := range m.sinks {
		sink.UpdateCredentials(token.ID, token.AccessToken, token.RefreshToken)
	}
}

func (m *Manager) countWith(pick func(*instrumentation.Metrics) metric.Int64Counter, attrs ...attribute.KeyValue) {
	if m.inst == nil {
		return
	}
	pick(m.inst.Metrics()).Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// grantedScopes reads the scope grant out of a token response. Twitch
// returns a JSON array; a space-separated string is accepted too.
func grantedScopes(tok *oauth2.Token) ([]helix.Scope, error) {
	switch raw := tok.Extra("scope").(type) {
	case nil:
		return nil, nil
	case string:
		return helix.ParseScopes(raw)
	case []interface{}:
		scopes := make([]helix.Scope, 0, len(raw))
		for _, entry := range raw {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("malformed scope entry %v in token response", entry)
			}
			scope, err := helix.ParseScope(s)
			if err != nil {
				return nil, err
			}
			scopes = append(scopes, scope)
		}
		return scopes, nil
	default:
		return nil, fmt.Errorf("malformed scope field in token response")
	}
}

// tokenLifetime reads expires_in from the token response, falling back
// to the computed expiry.
func tokenLifetime(tok *oauth2.Token) int {
	if raw, ok := tok.Extra("expires_in").(float64); ok && raw > 0 {
		return int(raw)
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int(time.Until(tok.Expiry).Round(time.Second).Seconds())
}
