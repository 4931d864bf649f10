package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/streamkit/helix"
)

// RoleEntry is one row of a moderator, VIP, or editor listing.
type RoleEntry struct {
	UserID    helix.Principal
	UserLogin string
	UserName  string
}

// SubscriptionEntry is one row of a subscriptions listing.
type SubscriptionEntry struct {
	UserID helix.Principal
	Tier   string
	IsGift bool
	Gifter helix.Principal
}

// FollowerEntry is one row of a followers listing.
type FollowerEntry struct {
	UserID     helix.Principal
	FollowedAt time.Time
}

func parsePrincipal(raw string) (helix.Principal, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed principal id %q: %w", raw, err)
	}
	return helix.Principal(id), nil
}

// listQuery builds the shared broadcaster/filter/cursor query for the
// paginated role listings. The user_id filter and the page size are
// both capped at PageLimit.
func listQuery(broadcaster helix.Principal, filter []helix.Principal, after string) url.Values {
	query := url.Values{}
	query.Set("broadcaster_id", broadcaster.String())
	query.Set("first", strconv.Itoa(PageLimit))
	for _, id := range filter {
		query.Add("user_id", id.String())
	}
	if after != "" {
		query.Set("after", after)
	}
	return query
}

type roleRow struct {
	UserID    string `json:"user_id"`
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
}

func (c *Client) roleList(ctx context.Context, accessToken, path string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]RoleEntry, string, error) {
	var resp struct {
		Data       []roleRow  `json:"data"`
		Pagination pagination `json:"pagination"`
	}
	if err := c.get(ctx, path, listQuery(broadcaster, filter, after), accessToken, &resp); err != nil {
		return nil, "", err
	}

	entries := make([]RoleEntry, 0, len(resp.Data))
	for _, row := range resp.Data {
		id, err := parsePrincipal(row.UserID)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, RoleEntry{UserID: id, UserLogin: row.UserLogin, UserName: row.UserName})
	}
	return entries, resp.Pagination.Cursor, nil
}

// Moderators lists one page of a channel's moderators. An optional
// user id filter restricts the listing to those users.
func (c *Client) Moderators(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]RoleEntry, string, error) {
	return c.roleList(ctx, accessToken, "/moderation/moderators", broadcaster, filter, after)
}

// VIPs lists one page of a channel's VIPs.
func (c *Client) VIPs(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]RoleEntry, string, error) {
	return c.roleList(ctx, accessToken, "/channels/vips", broadcaster, filter, after)
}

// Editors lists a channel's editors. The endpoint is unpaginated.
func (c *Client) Editors(ctx context.Context, accessToken string, broadcaster helix.Principal) ([]RoleEntry, error) {
	query := url.Values{}
	query.Set("broadcaster_id", broadcaster.String())

	var resp struct {
		Data []roleRow `json:"data"`
	}
	if err := c.get(ctx, "/channels/editors", query, accessToken, &resp); err != nil {
		return nil, err
	}

	entries := make([]RoleEntry, 0, len(resp.Data))
	for _, row := range resp.Data {
		id, err := parsePrincipal(row.UserID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RoleEntry{UserID: id, UserLogin: row.UserLogin, UserName: row.UserName})
	}
	return entries, nil
}

// Subscriptions lists one page of a channel's subscribers.
func (c *Client) Subscriptions(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]SubscriptionEntry, string, error) {
	var resp struct {
		Data []struct {
			UserID   string `json:"user_id"`
			Tier     string `json:"tier"`
			IsGift   bool   `json:"is_gift"`
			GifterID string `json:"gifter_id"`
		} `json:"data"`
		Pagination pagination `json:"pagination"`
	}
	if err := c.get(ctx, "/subscriptions", listQuery(broadcaster, filter, after), accessToken, &resp); err != nil {
		return nil, "", err
	}

	entries := make([]SubscriptionEntry, 0, len(resp.Data))
	for _, row := range resp.Data {
		id, err := parsePrincipal(row.UserID)
		if err != nil {
			return nil, "", err
		}
		entry := SubscriptionEntry{UserID: id, Tier: row.Tier, IsGift: row.IsGift}
		if row.IsGift && row.GifterID != "" {
			gifter, err := parsePrincipal(row.GifterID)
			if err != nil {
				return nil, "", err
			}
			entry.Gifter = gifter
		}
		entries = append(entries, entry)
	}
	return entries, resp.Pagination.Cursor, nil
}

// Followers lists one page of a channel's followers.
func (c *Client) Followers(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]FollowerEntry, string, error) {
	var resp struct {
		Data []struct {
			UserID     string `json:"user_id"`
			FollowedAt string `json:"followed_at"`
		} `json:"data"`
		Pagination pagination `json:"pagination"`
	}
	if err := c.get(ctx, "/channels/followers", listQuery(broadcaster, filter, after), accessToken, &resp); err != nil {
		return nil, "", err
	}

	entries := make([]FollowerEntry, 0, len(resp.Data))
	for _, row := range resp.Data {
		id, err := parsePrincipal(row.UserID)
		if err != nil {
			return nil, "", err
		}
		var followedAt time.Time
		if row.FollowedAt != "" {
			followedAt, err = time.Parse(time.RFC3339, row.FollowedAt)
			if err != nil {
				return nil, "", fmt.Errorf("malformed followed_at %q: %w", row.FollowedAt, err)
			}
		}
		entries = append(entries, FollowerEntry{UserID: id, FollowedAt: followedAt})
	}
	return entries, resp.Pagination.Cursor, nil
}

func mutationQuery(broadcaster, user helix.Principal) url.Values {
	query := url.Values{}
	query.Set("broadcaster_id", broadcaster.String())
	query.Set("user_id", user.String())
	return query
}

// AddModerator grants moderator status to a user on a channel.
func (c *Client) AddModerator(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error {
	return c.do(ctx, http.MethodPost, "/moderation/moderators", mutationQuery(broadcaster, user), accessToken, nil)
}

// RemoveModerator revokes moderator status from a user on a channel.
func (c *Client) RemoveModerator(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error {
	return c.do(ctx, http.MethodDelete, "/moderation/moderators", mutationQuery(broadcaster, user), accessToken, nil)
}

// AddVIP grants VIP status to a user on a channel.
func (c *Client) AddVIP(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error {
	return c.do(ctx, http.MethodPost, "/channels/vips", mutationQuery(broadcaster, user), accessToken, nil)
}

// RemoveVIP revokes VIP status from a user on a channel.
func (c *Client) RemoveVIP(ctx context.Context, accessToken string, broadcaster, user helix.Principal) error {
	return c.do(ctx, http.MethodDelete, "/channels/vips", mutationQuery(broadcaster, user), accessToken, nil)
}
