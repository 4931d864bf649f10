package roles

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/api"
	"github.com/streamkit/helix/instrumentation"
)

// roleLister is the shared shape of the paginated moderator and VIP
// listing endpoints.
type roleLister func(ctx context.Context, accessToken string, broadcaster helix.Principal, filter []helix.Principal, after string) ([]api.RoleEntry, string, error)

// Moderators returns the full moderator relation set for a channel,
// serving the cached set when the first page shows no unknown ids.
func (r *Resolver) Moderators(ctx context.Context, channel helix.Principal) ([]helix.RelationRecord, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeModerationRead)
	if err != nil {
		return nil, err
	}
	return r.sweepRoles(ctx, token, channel, helix.KindModerator, r.api.Moderators)
}

// VIPs returns the full VIP relation set for a channel.
func (r *Resolver) VIPs(ctx context.Context, channel helix.Principal) ([]helix.RelationRecord, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelReadVIPs)
	if err != nil {
		return nil, err
	}
	return r.sweepRoles(ctx, token, channel, helix.KindVIP, r.api.VIPs)
}

func (r *Resolver) sweepRoles(ctx context.Context, token string, channel helix.Principal, kind helix.RelationKind, list roleLister) (_ []helix.RelationRecord, err error) {
	ctx, span := r.tracer.Start(ctx, "roles.sweep")
	defer span.End()
	defer func() { instrumentation.RecordError(span, err) }()
	instrumentation.AddRelationAttributes(span, int64(channel), kind.String())

	page, cursor, err := list(ctx, token, channel, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss for channel %d: %w", kind, channel, err)
	}

	pageIDs := make([]helix.Principal, len(page))
	for i, entry := range page {
		pageIDs[i] = entry.UserID
	}
	if cached, ok := r.coherent(kind, channel, pageIDs); ok {
		instrumentation.SetSpanSuccess(span)
		return cached, nil
	}

	entries := page
	for cursor != "" {
		var next []api.RoleEntry
		next, cursor, err = list(ctx, token, channel, nil, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss for channel %d: %w", kind, channel, err)
		}
		entries = append(entries, next...)
	}

	ids := make([]helix.Principal, len(entries))
	base := make(map[helix.Principal]helix.User, len(entries))
	for i, entry := range entries {
		ids[i] = entry.UserID
		base[entry.UserID] = helix.User{ID: entry.UserID, Login: entry.UserLogin, DisplayName: entry.UserName}
	}
	profiles, err := r.enrich(ctx, token, ids)
	if err != nil {
		return nil, err
	}

	records := make([]helix.RelationRecord, 0, len(entries))
	for _, entry := range entries {
		user := base[entry.UserID]
		if profile, ok := profiles[entry.UserID]; ok {
			user = profile
		}
		records = append(records, helix.RelationRecord{User: user, Channel: channel, Kind: kind})
	}

	r.storeSweep(kind, channel, records)
	instrumentation.SetSpanSuccess(span)
	return append([]helix.RelationRecord(nil), records...), nil
}

// Subscribers returns the full subscriber relation set for a channel,
// including tier and gift metadata.
func (r *Resolver) Subscribers(ctx context.Context, channel helix.Principal) ([]helix.RelationRecord, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelReadSubscriptions)
	if err != nil {
		return nil, err
	}

	page, cursor, err := r.api.Subscriptions(ctx, token, channel, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers for channel %d: %w", channel, err)
	}

	pageIDs := make([]helix.Principal, len(page))
	for i, entry := range page {
		pageIDs[i] = entry.UserID
	}
	if cached, ok := r.coherent(helix.KindSubscriber, channel, pageIDs); ok {
		return cached, nil
	}

	entries := page
	for cursor != "" {
		var next []api.SubscriptionEntry
		next, cursor, err = r.api.Subscriptions(ctx, token, channel, nil, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscribers for channel %d: %w", channel, err)
		}
		entries = append(entries, next...)
	}

	ids := make([]helix.Principal, len(entries))
	for i, entry := range entries {
		ids[i] = entry.UserID
	}
	profiles, err := r.enrich(ctx, token, ids)
	if err != nil {
		return nil, err
	}

	records := make([]helix.RelationRecord, 0, len(entries))
	for _, entry := range entries {
		user, ok := profiles[entry.UserID]
		if !ok {
			user = helix.User{ID: entry.UserID}
		}
		records = append(records, helix.RelationRecord{
			User:    user,
			Channel: channel,
			Kind:    helix.KindSubscriber,
			Subscription: &helix.SubscriptionMeta{
				Tier:   entry.Tier,
				IsGift: entry.IsGift,
				Gifter: entry.Gifter,
			},
		})
	}

	r.storeSweep(helix.KindSubscriber, channel, records)
	return append([]helix.RelationRecord(nil), records...), nil
}

// Followers returns the full follower relation set for a channel with
// follow timestamps.
func (r *Resolver) Followers(ctx context.Context, channel helix.Principal) ([]helix.RelationRecord, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeModeratorReadFollowers)
	if err != nil {
		return nil, err
	}

	page, cursor, err := r.api.Followers(ctx, token, channel, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list followers for channel %d: %w", channel, err)
	}

	pageIDs := make([]helix.Principal, len(page))
	for i, entry := range page {
		pageIDs[i] = entry.UserID
	}
	if cached, ok := r.coherent(helix.KindFollower, channel, pageIDs); ok {
		return cached, nil
	}

	entries := page
	for cursor != "" {
		var next []api.FollowerEntry
		next, cursor, err = r.api.Followers(ctx, token, channel, nil, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list followers for channel %d: %w", channel, err)
		}
		entries = append(entries, next...)
	}

	ids := make([]helix.Principal, len(entries))
	for i, entry := range entries {
		ids[i] = entry.UserID
	}
	profiles, err := r.enrich(ctx, token, ids)
	if err != nil {
		return nil, err
	}

	records := make([]helix.RelationRecord, 0, len(entries))
	for _, entry := range entries {
		user, ok := profiles[entry.UserID]
		if !ok {
			user = helix.User{ID: entry.UserID}
		}
		records = append(records, helix.RelationRecord{
			User:       user,
			Channel:    channel,
			Kind:       helix.KindFollower,
			FollowedAt: entry.FollowedAt,
		})
	}

	r.storeSweep(helix.KindFollower, channel, records)
	return append([]helix.RelationRecord(nil), records...), nil
}

// Editors returns the editor relation set for a channel. The endpoint
// is unpaginated and cheap, so editors are always refetched and never
// cached.
func (r *Resolver) Editors(ctx context.Context, channel helix.Principal) ([]helix.RelationRecord, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelReadEditors)
	if err != nil {
		return nil, err
	}

	entries, err := r.api.Editors(ctx, token, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to list editors for channel %d: %w", channel, err)
	}

	ids := make([]helix.Principal, len(entries))
	base := make(map[helix.Principal]helix.User, len(entries))
	for i, entry := range entries {
		ids[i] = entry.UserID
		base[entry.UserID] = helix.User{ID: entry.UserID, Login: entry.UserLogin, DisplayName: entry.UserName}
	}
	profiles, err := r.enrich(ctx, token, ids)
	if err != nil {
		return nil, err
	}

	records := make([]helix.RelationRecord, 0, len(entries))
	for _, entry := range entries {
		user := base[entry.UserID]
		if profile, ok := profiles[entry.UserID]; ok {
			user = profile
		}
		records = append(records, helix.RelationRecord{User: user, Channel: channel, Kind: helix.KindEditor})
	}
	return records, nil
}

// coherent applies the first-page containment check: when a cached
// entry exists and every id on the fetched page is already in it, the
// cached set is current enough to serve. Removals are invisible to
// this check; a stale cached removal persists until an addition or an
// explicit cache clear.
func (r *Resolver) coherent(kind helix.RelationKind, channel helix.Principal, pageIDs []helix.Principal) ([]helix.RelationRecord, bool) {
	cached, ok := r.cachedRecords(kind, channel)
	if !ok {
		r.countCache(func(m *instrumentation.Metrics) metric.Int64Counter { return m.CacheMisses }, kind)
		return nil, false
	}

	known := make(map[helix.Principal]struct{}, len(cached))
	for _, record := range cached {
		known[record.User.ID] = struct{}{}
	}
	for _, id := range pageIDs {
		if _, ok := known[id]; !ok {
			r.countCache(func(m *instrumentation.Metrics) metric.Int64Counter { return m.CacheMisses }, kind)
			return nil, false
		}
	}

	r.countCache(func(m *instrumentation.Metrics) metric.Int64Counter { return m.CacheHits }, kind)
	r.logger.Debug("serving cached relation set",
		"kind", kind.String(),
		"channel", channel,
		"records", len(cached))
	return cached, true
}

func (r *Resolver) storeSweep(kind helix.RelationKind, channel helix.Principal, records []helix.RelationRecord) {
	r.replaceEntry(kind, channel, records)
	r.countCache(func(m *instrumentation.Metrics) metric.Int64Counter { return m.CacheSweeps }, kind)
	r.logger.Debug("relation sweep complete",
		"kind", kind.String(),
		"channel", channel,
		"records", len(records))
}

// enrich fetches full profiles for the given ids, keyed by principal.
func (r *Resolver) enrich(ctx context.Context, token string, ids []helix.Principal) (map[helix.Principal]helix.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := r.api.UsersByID(ctx, token, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich user profiles: %w", err)
	}
	out := make(map[helix.Principal]helix.User, len(users))
	for _, user := range users {
		out[user.ID] = user
	}
	return out, nil
}
