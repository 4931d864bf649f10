package roles

import (
	"context"
	"fmt"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/api"
)

// IsModerator reports whether a user moderates a channel. The check
// queries the vendor with an id filter instead of the cache, so it
// observes removals the cache heuristic cannot. A channel is never
// its own moderator.
func (r *Resolver) IsModerator(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeModerationRead)
	if err != nil {
		return false, err
	}
	return r.filteredContains(ctx, token, channel, user, r.api.Moderators)
}

// IsVIP reports whether a user is a VIP on a channel, by live
// filtered query.
func (r *Resolver) IsVIP(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelReadVIPs)
	if err != nil {
		return false, err
	}
	return r.filteredContains(ctx, token, channel, user, r.api.VIPs)
}

// IsEditor reports whether a user is an editor of a channel.
func (r *Resolver) IsEditor(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}
	editors, err := r.Editors(ctx, channel)
	if err != nil {
		return false, err
	}
	for _, record := range editors {
		if record.User.ID == user {
			return true, nil
		}
	}
	return false, nil
}

// IsSubscriber reports whether a user subscribes to a channel, from
// the full subscriber relation set.
func (r *Resolver) IsSubscriber(ctx context.Context, channel, user helix.Principal) (bool, error) {
	subscribers, err := r.Subscribers(ctx, channel)
	if err != nil {
		return false, err
	}
	for _, record := range subscribers {
		if record.User.ID == user {
			return true, nil
		}
	}
	return false, nil
}

// IsFollower reports whether a user follows a channel, by a direct
// single-id filtered lookup. A channel is never its own follower.
func (r *Resolver) IsFollower(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeModeratorReadFollowers)
	if err != nil {
		return false, err
	}
	entries, _, err := r.api.Followers(ctx, token, channel, []helix.Principal{user}, "")
	if err != nil {
		return false, fmt.Errorf("failed to check follower %d on channel %d: %w", user, channel, err)
	}
	return len(entries) > 0, nil
}

// filteredContains issues one filtered listing query for a single
// user and reports whether an entry came back.
func (r *Resolver) filteredContains(ctx context.Context, token string, channel, user helix.Principal, list roleLister) (bool, error) {
	entries, _, err := list(ctx, token, channel, []helix.Principal{user}, "")
	if err != nil {
		return false, fmt.Errorf("failed to check membership of %d on channel %d: %w", user, channel, err)
	}
	for _, entry := range entries {
		if entry.UserID == user {
			return true, nil
		}
	}
	return false, nil
}

// CheckModerators reports moderator status for many users at once,
// chunking the id filter at the page cap.
func (r *Resolver) CheckModerators(ctx context.Context, channel helix.Principal, users []helix.Principal) (map[helix.Principal]bool, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeModerationRead)
	if err != nil {
		return nil, err
	}
	return r.checkFiltered(ctx, token, channel, users, r.api.Moderators)
}

// CheckVIPs reports VIP status for many users at once.
func (r *Resolver) CheckVIPs(ctx context.Context, channel helix.Principal, users []helix.Principal) (map[helix.Principal]bool, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelReadVIPs)
	if err != nil {
		return nil, err
	}
	return r.checkFiltered(ctx, token, channel, users, r.api.VIPs)
}

func (r *Resolver) checkFiltered(ctx context.Context, token string, channel helix.Principal, users []helix.Principal, list roleLister) (map[helix.Principal]bool, error) {
	result := make(map[helix.Principal]bool, len(users))
	var remote []helix.Principal
	for _, user := range users {
		result[user] = false
		if user != channel {
			remote = append(remote, user)
		}
	}

	for start := 0; start < len(remote); start += api.PageLimit {
		end := min(start+api.PageLimit, len(remote))
		entries, _, err := list(ctx, token, channel, remote[start:end], "")
		if err != nil {
			return nil, fmt.Errorf("failed to check memberships on channel %d: %w", channel, err)
		}
		for _, entry := range entries {
			result[entry.UserID] = true
		}
	}
	return result, nil
}

// CheckEditors reports editor status for many users against the
// editor relation set.
func (r *Resolver) CheckEditors(ctx context.Context, channel helix.Principal, users []helix.Principal) (map[helix.Principal]bool, error) {
	editors, err := r.Editors(ctx, channel)
	if err != nil {
		return nil, err
	}
	return membershipMap(channel, users, editors, true), nil
}

// CheckSubscribers reports subscriber status for many users against
// the full subscriber relation set.
func (r *Resolver) CheckSubscribers(ctx context.Context, channel helix.Principal, users []helix.Principal) (map[helix.Principal]bool, error) {
	subscribers, err := r.Subscribers(ctx, channel)
	if err != nil {
		return nil, err
	}
	return membershipMap(channel, users, subscribers, false), nil
}

// CheckFollowers reports follower status for many users against the
// full follower relation set.
func (r *Resolver) CheckFollowers(ctx context.Context, channel helix.Principal, users []helix.Principal) (map[helix.Principal]bool, error) {
	followers, err := r.Followers(ctx, channel)
	if err != nil {
		return nil, err
	}
	return membershipMap(channel, users, followers, true), nil
}

// membershipMap answers bulk checks from a relation set. excludeSelf
// applies the roles where a channel can never hold its own relation.
func membershipMap(channel helix.Principal, users []helix.Principal, records []helix.RelationRecord, excludeSelf bool) map[helix.Principal]bool {
	members := make(map[helix.Principal]struct{}, len(records))
	for _, record := range records {
		members[record.User.ID] = struct{}{}
	}
	result := make(map[helix.Principal]bool, len(users))
	for _, user := range users {
		_, ok := members[user]
		result[user] = ok && (!excludeSelf || user != channel)
	}
	return result
}
