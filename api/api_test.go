package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/instrumentation"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-client-id",
		WithBaseURL(server.URL),
		WithRateLimit(0, 0))
}

func TestClientHeaders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Client-Id"); got != "test-client-id" {
			t.Errorf("Client-Id = %q, want %q", got, "test-client-id")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token123" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token123")
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))

	if _, err := client.Editors(context.Background(), "token123", 42); err != nil {
		t.Fatalf("Editors() error = %v", err)
	}
}

func TestClientAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))

	_, err := client.Editors(context.Background(), "expired", 42)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Editors() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusUnauthorized)
	}
}

func TestClientInstrumented(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{ServiceName: "api-test", Enabled: true})
	if err != nil {
		t.Fatalf("instrumentation.New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer expired" {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient("test-client-id",
		WithBaseURL(server.URL),
		WithRateLimit(0, 0),
		WithInstrumentation(inst))

	if _, err := client.Editors(context.Background(), "token", 42); err != nil {
		t.Fatalf("Editors() error = %v", err)
	}

	// The error path records the same span and metrics.
	_, err = client.Editors(context.Background(), "expired", 42)
	if _, ok := err.(*APIError); !ok {
		t.Fatalf("Editors() error = %v, want *APIError", err)
	}
}

func TestModeratorsQuery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderation/moderators" {
			t.Errorf("path = %q, want /moderation/moderators", r.URL.Path)
		}
		query := r.URL.Query()
		if got := query.Get("broadcaster_id"); got != "42" {
			t.Errorf("broadcaster_id = %q, want 42", got)
		}
		if got := query.Get("first"); got != "100" {
			t.Errorf("first = %q, want 100", got)
		}
		if got := query["user_id"]; len(got) != 2 || got[0] != "7" || got[1] != "8" {
			t.Errorf("user_id = %v, want [7 8]", got)
		}
		if got := query.Get("after"); got != "cursor-a" {
			t.Errorf("after = %q, want cursor-a", got)
		}
		fmt.Fprint(w, `{
			"data": [
				{"user_id": "7", "user_login": "alpha", "user_name": "Alpha"},
				{"user_id": "8", "user_login": "beta", "user_name": "Beta"}
			],
			"pagination": {"cursor": "cursor-b"}
		}`)
	}))

	entries, cursor, err := client.Moderators(context.Background(), "token",
		42, []helix.Principal{7, 8}, "cursor-a")
	if err != nil {
		t.Fatalf("Moderators() error = %v", err)
	}
	if cursor != "cursor-b" {
		t.Errorf("cursor = %q, want cursor-b", cursor)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	want := RoleEntry{UserID: 7, UserLogin: "alpha", UserName: "Alpha"}
	if entries[0] != want {
		t.Errorf("entries[0] = %+v, want %+v", entries[0], want)
	}
}

func TestSubscriptionsGiftParsing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscriptions" {
			t.Errorf("path = %q, want /subscriptions", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"data": [
				{"user_id": "10", "tier": "1000", "is_gift": false, "gifter_id": ""},
				{"user_id": "11", "tier": "3000", "is_gift": true, "gifter_id": "10"}
			],
			"pagination": {}
		}`)
	}))

	entries, cursor, err := client.Subscriptions(context.Background(), "token", 42, nil, "")
	if err != nil {
		t.Fatalf("Subscriptions() error = %v", err)
	}
	if cursor != "" {
		t.Errorf("cursor = %q, want empty", cursor)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Gifter != 0 {
		t.Errorf("entries[0].Gifter = %d, want 0", entries[0].Gifter)
	}
	if entries[1].Gifter != 10 || entries[1].Tier != "3000" || !entries[1].IsGift {
		t.Errorf("entries[1] = %+v, want gifter 10 tier 3000 gift", entries[1])
	}
}

func TestFollowersTimestamps(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": [{"user_id": "5", "followed_at": "2024-03-01T12:00:00Z"}],
			"pagination": {"cursor": "next"}
		}`)
	}))

	entries, cursor, err := client.Followers(context.Background(), "token", 42, nil, "")
	if err != nil {
		t.Fatalf("Followers() error = %v", err)
	}
	if cursor != "next" {
		t.Errorf("cursor = %q, want next", cursor)
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if len(entries) != 1 || !entries[0].FollowedAt.Equal(want) {
		t.Errorf("entries = %+v, want followed_at %v", entries, want)
	}
}

func TestMutationRequests(t *testing.T) {
	tests := []struct {
		name       string
		call       func(*Client) error
		wantMethod string
		wantPath   string
	}{
		{
			name: "add moderator",
			call: func(c *Client) error {
				return c.AddModerator(context.Background(), "token", 42, 7)
			},
			wantMethod: http.MethodPost,
			wantPath:   "/moderation/moderators",
		},
		{
			name: "remove moderator",
			call: func(c *Client) error {
				return c.RemoveModerator(context.Background(), "token", 42, 7)
			},
			wantMethod: http.MethodDelete,
			wantPath:   "/moderation/moderators",
		},
		{
			name: "add vip",
			call: func(c *Client) error {
				return c.AddVIP(context.Background(), "token", 42, 7)
			},
			wantMethod: http.MethodPost,
			wantPath:   "/channels/vips",
		},
		{
			name: "remove vip",
			call: func(c *Client) error {
				return c.RemoveVIP(context.Background(), "token", 42, 7)
			},
			wantMethod: http.MethodDelete,
			wantPath:   "/channels/vips",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.wantMethod {
					t.Errorf("method = %q, want %q", r.Method, tt.wantMethod)
				}
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %q, want %q", r.URL.Path, tt.wantPath)
				}
				query := r.URL.Query()
				if got := query.Get("broadcaster_id"); got != "42" {
					t.Errorf("broadcaster_id = %q, want 42", got)
				}
				if got := query.Get("user_id"); got != "7" {
					t.Errorf("user_id = %q, want 7", got)
				}
				w.WriteHeader(http.StatusNoContent)
			}))

			if err := tt.call(client); err != nil {
				t.Fatalf("%s error = %v", tt.name, err)
			}
		})
	}
}

func TestUsersByIDChunking(t *testing.T) {
	var requests int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		ids := r.URL.Query()["id"]
		if len(ids) > PageLimit {
			t.Errorf("request carried %d ids, limit is %d", len(ids), PageLimit)
		}
		fmt.Fprintf(w, `{"data": [{"id": %q, "login": "u", "created_at": "2020-01-01T00:00:00Z"}]}`, ids[0])
	}))

	ids := make([]helix.Principal, 150)
	for i := range ids {
		ids[i] = helix.Principal(i + 1)
	}
	if _, err := client.UsersByID(context.Background(), "token", ids); err != nil {
		t.Fatalf("UsersByID() error = %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestSelf(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Query()["id"]) != 0 || len(r.URL.Query()["login"]) != 0 {
			t.Error("self lookup must not carry id or login filters")
		}
		fmt.Fprint(w, `{
			"data": [{
				"id": "99",
				"login": "streamer",
				"display_name": "Streamer",
				"broadcaster_type": "partner",
				"created_at": "2019-06-01T00:00:00Z"
			}]
		}`)
	}))

	user, err := client.Self(context.Background(), "token")
	if err != nil {
		t.Fatalf("Self() error = %v", err)
	}
	if user.ID != 99 || user.Login != "streamer" || user.BroadcasterType != "partner" {
		t.Errorf("Self() = %+v", user)
	}
}
