package helix

import (
	"fmt"
	"sort"
	"strings"
)

// Scope is a Twitch OAuth permission string. The set is closed and
// vendor-defined; ParseScope rejects strings outside it.
//
// See https://dev.twitch.tv/docs/authentication/scopes/ for the
// authoritative list.
type Scope string

// Analytics and bits scopes.
const (
	ScopeAnalyticsReadExtensions Scope = "analytics:read:extensions"
	ScopeAnalyticsReadGames      Scope = "analytics:read:games"
	ScopeBitsRead                Scope = "bits:read"
)

// Channel scopes.
const (
	ScopeChannelBot                Scope = "channel:bot"
	ScopeChannelManageAds          Scope = "channel:manage:ads"
	ScopeChannelReadAds            Scope = "channel:read:ads"
	ScopeChannelManageBroadcast    Scope = "channel:manage:broadcast"
	ScopeChannelReadCharity        Scope = "channel:read:charity"
	ScopeChannelManageClips        Scope = "channel:manage:clips"
	ScopeChannelEditCommercial     Scope = "channel:edit:commercial"
	ScopeChannelReadEditors        Scope = "channel:read:editors"
	ScopeChannelManageExtensions   Scope = "channel:manage:extensions"
	ScopeChannelReadGoals          Scope = "channel:read:goals"
	ScopeChannelReadGuestStar      Scope = "channel:read:guest_star"
	ScopeChannelManageGuestStar    Scope = "channel:manage:guest_star"
	ScopeChannelReadHypeTrain      Scope = "channel:read:hype_train"
	ScopeChannelManageModerators   Scope = "channel:manage:moderators"
	ScopeChannelReadPolls          Scope = "channel:read:polls"
	ScopeChannelManagePolls        Scope = "channel:manage:polls"
	ScopeChannelReadPredictions    Scope = "channel:read:predictions"
	ScopeChannelManagePredictions  Scope = "channel:manage:predictions"
	ScopeChannelManageRaids        Scope = "channel:manage:raids"
	ScopeChannelReadRedemptions    Scope = "channel:read:redemptions"
	ScopeChannelManageRedemptions  Scope = "channel:manage:redemptions"
	ScopeChannelManageSchedule     Scope = "channel:manage:schedule"
	ScopeChannelReadStreamKey      Scope = "channel:read:stream_key"
	ScopeChannelReadSubscriptions  Scope = "channel:read:subscriptions"
	ScopeChannelManageVideos       Scope = "channel:manage:videos"
	ScopeChannelReadVIPs           Scope = "channel:read:vips"
	ScopeChannelManageVIPs         Scope = "channel:manage:vips"
	ScopeChannelModerate           Scope = "channel:moderate"
	ScopeClipsEdit                 Scope = "clips:edit"
	ScopeEditorManageClips         Scope = "editor:manage:clips"
)

// Moderation scopes.
const (
	ScopeModerationRead                  Scope = "moderation:read"
	ScopeModeratorManageAnnouncements    Scope = "moderator:manage:announcements"
	ScopeModeratorManageAutomod          Scope = "moderator:manage:automod"
	ScopeModeratorReadAutomodSettings    Scope = "moderator:read:automod_settings"
	ScopeModeratorManageAutomodSettings  Scope = "moderator:manage:automod_settings"
	ScopeModeratorReadBannedUsers        Scope = "moderator:read:banned_users"
	ScopeModeratorManageBannedUsers      Scope = "moderator:manage:banned_users"
	ScopeModeratorReadBlockedTerms       Scope = "moderator:read:blocked_terms"
	ScopeModeratorReadChatMessages       Scope = "moderator:read:chat_messages"
	ScopeModeratorManageBlockedTerms     Scope = "moderator:manage:blocked_terms"
	ScopeModeratorManageChatMessages     Scope = "moderator:manage:chat_messages"
	ScopeModeratorReadChatSettings       Scope = "moderator:read:chat_settings"
	ScopeModeratorManageChatSettings     Scope = "moderator:manage:chat_settings"
	ScopeModeratorReadChatters           Scope = "moderator:read:chatters"
	ScopeModeratorReadFollowers          Scope = "moderator:read:followers"
	ScopeModeratorReadGuestStar          Scope = "moderator:read:guest_star"
	ScopeModeratorManageGuestStar        Scope = "moderator:manage:guest_star"
	ScopeModeratorReadModerators         Scope = "moderator:read:moderators"
	ScopeModeratorReadShieldMode         Scope = "moderator:read:shield_mode"
	ScopeModeratorManageShieldMode       Scope = "moderator:manage:shield_mode"
	ScopeModeratorReadShoutouts          Scope = "moderator:read:shoutouts"
	ScopeModeratorManageShoutouts        Scope = "moderator:manage:shoutouts"
	ScopeModeratorReadSuspiciousUsers    Scope = "moderator:read:suspicious_users"
	ScopeModeratorReadUnbanRequests      Scope = "moderator:read:unban_requests"
	ScopeModeratorManageUnbanRequests    Scope = "moderator:manage:unban_requests"
	ScopeModeratorReadVIPs               Scope = "moderator:read:vips"
	ScopeModeratorReadWarnings           Scope = "moderator:read:warnings"
	ScopeModeratorManageWarnings         Scope = "moderator:manage:warnings"
)

// User and chat scopes.
const (
	ScopeUserBot                  Scope = "user:bot"
	ScopeUserEdit                 Scope = "user:edit"
	ScopeUserEditBroadcast        Scope = "user:edit:broadcast"
	ScopeUserReadBlockedUsers     Scope = "user:read:blocked_users"
	ScopeUserManageBlockedUsers   Scope = "user:manage:blocked_users"
	ScopeUserReadBroadcast        Scope = "user:read:broadcast"
	ScopeUserReadChat             Scope = "user:read:chat"
	ScopeUserManageChatColor      Scope = "user:manage:chat_color"
	ScopeUserReadEmail            Scope = "user:read:email"
	ScopeUserReadEmotes           Scope = "user:read:emotes"
	ScopeUserReadFollows          Scope = "user:read:follows"
	ScopeUserReadModeratedChannels Scope = "user:read:moderated_channels"
	ScopeUserReadSubscriptions    Scope = "user:read:subscriptions"
	ScopeUserReadWhispers         Scope = "user:read:whispers"
	ScopeUserManageWhispers       Scope = "user:manage:whispers"
	ScopeUserWriteChat            Scope = "user:write:chat"
	ScopeChatEdit                 Scope = "chat:edit"
	ScopeChatRead                 Scope = "chat:read"
	ScopeWhispersRead             Scope = "whispers:read"
)

var knownScopes = func() map[Scope]struct{} {
	all := []Scope{
		ScopeAnalyticsReadExtensions, ScopeAnalyticsReadGames, ScopeBitsRead,
		ScopeChannelBot, ScopeChannelManageAds, ScopeChannelReadAds,
		ScopeChannelManageBroadcast, ScopeChannelReadCharity, ScopeChannelManageClips,
		ScopeChannelEditCommercial, ScopeChannelReadEditors, ScopeChannelManageExtensions,
		ScopeChannelReadGoals, ScopeChannelReadGuestStar, ScopeChannelManageGuestStar,
		ScopeChannelReadHypeTrain, ScopeChannelManageModerators, ScopeChannelReadPolls,
		ScopeChannelManagePolls, ScopeChannelReadPredictions, ScopeChannelManagePredictions,
		ScopeChannelManageRaids, ScopeChannelReadRedemptions, ScopeChannelManageRedemptions,
		ScopeChannelManageSchedule, ScopeChannelReadStreamKey, ScopeChannelReadSubscriptions,
		ScopeChannelManageVideos, ScopeChannelReadVIPs, ScopeChannelManageVIPs,
		ScopeChannelModerate, ScopeClipsEdit, ScopeEditorManageClips,
		ScopeModerationRead, ScopeModeratorManageAnnouncements, ScopeModeratorManageAutomod,
		ScopeModeratorReadAutomodSettings, ScopeModeratorManageAutomodSettings,
		ScopeModeratorReadBannedUsers, ScopeModeratorManageBannedUsers,
		ScopeModeratorReadBlockedTerms, ScopeModeratorReadChatMessages,
		ScopeModeratorManageBlockedTerms, ScopeModeratorManageChatMessages,
		ScopeModeratorReadChatSettings, ScopeModeratorManageChatSettings,
		ScopeModeratorReadChatters, ScopeModeratorReadFollowers,
		ScopeModeratorReadGuestStar, ScopeModeratorManageGuestStar,
		ScopeModeratorReadModerators, ScopeModeratorReadShieldMode,
		ScopeModeratorManageShieldMode, ScopeModeratorReadShoutouts,
		ScopeModeratorManageShoutouts, ScopeModeratorReadSuspiciousUsers,
		ScopeModeratorReadUnbanRequests, ScopeModeratorManageUnbanRequests,
		ScopeModeratorReadVIPs, ScopeModeratorReadWarnings, ScopeModeratorManageWarnings,
		ScopeUserBot, ScopeUserEdit, ScopeUserEditBroadcast,
		ScopeUserReadBlockedUsers, ScopeUserManageBlockedUsers, ScopeUserReadBroadcast,
		ScopeUserReadChat, ScopeUserManageChatColor, ScopeUserReadEmail,
		ScopeUserReadEmotes, ScopeUserReadFollows, ScopeUserReadModeratedChannels,
		ScopeUserReadSubscriptions, ScopeUserReadWhispers, ScopeUserManageWhispers,
		ScopeUserWriteChat, ScopeChatEdit, ScopeChatRead, ScopeWhispersRead,
	}
	m := make(map[Scope]struct{}, len(all))
	for _, s := range all {
		m[s] = struct{}{}
	}
	return m
}()

func (s Scope) String() string {
	return string(s)
}

// ParseScope validates a single scope string against the known set.
func ParseScope(s string) (Scope, error) {
	scope := Scope(strings.TrimSpace(s))
	if scope == "" {
		return "", fmt.Errorf("scope cannot be empty")
	}
	if _, ok := knownScopes[scope]; !ok {
		return "", fmt.Errorf("unknown scope %q", s)
	}
	return scope, nil
}

// ParseScopes parses a space- or plus-separated scope list, as found
// in authorize URLs and token responses.
func ParseScopes(s string) ([]Scope, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '+'
	})
	scopes := make([]Scope, 0, len(fields))
	for _, f := range fields {
		scope, err := ParseScope(f)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// DedupeScopes returns the scopes with duplicates removed, in a stable
// sorted order.
func DedupeScopes(scopes []Scope) []Scope {
	seen := make(map[Scope]struct{}, len(scopes))
	out := make([]Scope, 0, len(scopes))
	for _, s := range scopes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
