package helix

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Config holds the application credentials shared by the token
// lifecycle manager and the API binding. It is an immutable value
// passed at construction; components never consult global state.
type Config struct {
	// ClientID and ClientSecret are the Twitch application
	// credentials. The client secret also seeds the key that
	// encrypts tokens at rest.
	ClientID     string
	ClientSecret string

	// RedirectURL is where Twitch redirects after authorization.
	// The callback handler must be mounted at its path.
	RedirectURL string

	// Logger for structured logging (optional, uses slog.Default
	// if not provided).
	Logger *slog.Logger

	// HTTPClient is a custom HTTP client for OAuth and API requests.
	// If not provided, http.DefaultClient is used.
	HTTPClient *http.Client
}

// Validate checks that the required fields are present and coherent.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect URL is required")
	}
	u, err := url.Parse(c.RedirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("redirect URL must be absolute: %q", c.RedirectURL)
	}
	if u.Path == "" || u.Path == "/" {
		return fmt.Errorf("redirect URL must carry a callback path: %q", c.RedirectURL)
	}
	return nil
}
