// Package api is the REST binding for the Twitch Helix endpoints this
// module consumes: user profiles and channel role listings/mutations.
// Every call carries the application Client-Id header and a per-call
// bearer token obtained from the token lifecycle manager.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/streamkit/helix/instrumentation"
)

// DefaultBaseURL is the production Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// PageLimit is the protocol cap on listing page sizes and on the
// number of id filters a single request may carry.
const PageLimit = 100

const defaultRequestTimeout = 30 * time.Second

// APIError is a non-2xx response from a Helix endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("helix api request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client issues requests against the Helix API. It rate-limits
// outgoing calls client-side so bulk sweeps do not trip the vendor's
// request budget.
type Client struct {
	baseURL        string
	clientID       string
	httpClient     *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
	logger         *slog.Logger
	inst           *instrumentation.Instrumentation
	tracer         trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, typically for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit sets the client-side requests-per-second budget.
// Zero disables limiting.
func WithRateLimit(rps int, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithInstrumentation attaches OpenTelemetry instrumentation. Every
// request records a span plus count and duration metrics.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(c *Client) {
		c.inst = inst
		c.tracer = inst.Tracer("api")
	}
}

// NewClient creates a Helix API client for the given application
// client id.
func NewClient(clientID string, opts ...Option) *Client {
	c := &Client{
		baseURL:        DefaultBaseURL,
		clientID:       clientID,
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
		limiter:        rate.NewLimiter(rate.Limit(10), 20),
		requestTimeout: defaultRequestTimeout,
		logger:         slog.Default(),
		tracer:         tracenoop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, accessToken string, out any) error {
	return c.do(ctx, http.MethodGet, path, query, accessToken, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, out any) error {
	ctx, span := c.tracer.Start(ctx, "helix.request")
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("rate limiter wait: %w", err)
			instrumentation.RecordError(span, err)
			return err
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		instrumentation.RecordError(span, err)
		return err
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("request failed: %w", err)
		c.observe(ctx, span, method, path, 0, start, err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("helix request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		c.observe(ctx, span, method, path, resp.StatusCode, start, apiErr)
		return apiErr
	}
	c.observe(ctx, span, method, path, resp.StatusCode, start, nil)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// observe records the span outcome and the request count and duration
// metrics for one completed round trip. The path is the route shape,
// never the full query string.
func (c *Client) observe(ctx context.Context, span trace.Span, method, path string, status int, start time.Time, err error) {
	instrumentation.AddHTTPAttributes(span, method, path, status)
	if err != nil {
		instrumentation.RecordError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	if c.inst == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(instrumentation.AttrHTTPMethod, method),
		attribute.String(instrumentation.AttrHTTPEndpoint, path),
		attribute.Int(instrumentation.AttrHTTPStatusCode, status),
	)
	m := c.inst.Metrics()
	m.APIRequestsTotal.Add(ctx, 1, attrs)
	m.APIRequestDuration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), attrs)
}

// pagination is the cursor envelope every paginated listing returns.
type pagination struct {
	Cursor string `json:"cursor"`
}
