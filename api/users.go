package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/streamkit/helix"
)

type userPayload struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	Email           string `json:"email"`
	CreatedAt       string `json:"created_at"`
}

func (p userPayload) toUser() (helix.User, error) {
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		return helix.User{}, fmt.Errorf("malformed user id %q: %w", p.ID, err)
	}
	var createdAt time.Time
	if p.CreatedAt != "" {
		createdAt, err = time.Parse(time.RFC3339, p.CreatedAt)
		if err != nil {
			return helix.User{}, fmt.Errorf("malformed created_at %q: %w", p.CreatedAt, err)
		}
	}
	return helix.User{
		ID:              helix.Principal(id),
		Login:           p.Login,
		DisplayName:     p.DisplayName,
		Type:            p.Type,
		BroadcasterType: p.BroadcasterType,
		Description:     p.Description,
		ProfileImageURL: p.ProfileImageURL,
		Email:           p.Email,
		CreatedAt:       createdAt,
	}, nil
}

func (c *Client) users(ctx context.Context, accessToken string, query url.Values) ([]helix.User, error) {
	var resp struct {
		Data []userPayload `json:"data"`
	}
	if err := c.get(ctx, "/users", query, accessToken, &resp); err != nil {
		return nil, err
	}

	users := make([]helix.User, 0, len(resp.Data))
	for _, payload := range resp.Data {
		user, err := payload.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// Self resolves the principal the access token belongs to. With no id
// or login filter the users endpoint returns the token's own account.
func (c *Client) Self(ctx context.Context, accessToken string) (helix.User, error) {
	users, err := c.users(ctx, accessToken, url.Values{})
	if err != nil {
		return helix.User{}, err
	}
	if len(users) != 1 {
		return helix.User{}, fmt.Errorf("expected exactly one user for token, got %d", len(users))
	}
	return users[0], nil
}

// UsersByID fetches enriched profiles for the given ids, chunking the
// lookup at the protocol limit.
func (c *Client) UsersByID(ctx context.Context, accessToken string, ids []helix.Principal) ([]helix.User, error) {
	var users []helix.User
	for start := 0; start < len(ids); start += PageLimit {
		end := min(start+PageLimit, len(ids))

		query := url.Values{}
		for _, id := range ids[start:end] {
			query.Add("id", id.String())
		}
		chunk, err := c.users(ctx, accessToken, query)
		if err != nil {
			return nil, err
		}
		users = append(users, chunk...)
	}
	return users, nil
}

// UsersByLogin fetches enriched profiles for the given login names,
// chunking the lookup at the protocol limit.
func (c *Client) UsersByLogin(ctx context.Context, accessToken string, logins []string) ([]helix.User, error) {
	var users []helix.User
	for start := 0; start < len(logins); start += PageLimit {
		end := min(start+PageLimit, len(logins))

		query := url.Values{}
		for _, login := range logins[start:end] {
			query.Add("login", login)
		}
		chunk, err := c.users(ctx, accessToken, query)
		if err != nil {
			return nil, err
		}
		users = append(users, chunk...)
	}
	return users, nil
}
