package roles

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/instrumentation"
)

// AddModerator grants moderator status to a user on a channel and
// reports whether the user verifiably holds it afterwards. The call
// short-circuits with false when the user already moderates the
// channel; a VIP is demoted first because the vendor rejects holding
// both roles, and a failed demotion aborts the promotion.
func (r *Resolver) AddModerator(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}

	already, err := r.IsModerator(ctx, channel, user)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	isVIP, err := r.IsVIP(ctx, channel, user)
	if err != nil {
		return false, err
	}
	if isVIP {
		demoted, err := r.removeVIP(ctx, channel, user)
		if err != nil {
			return false, fmt.Errorf("failed to demote VIP %d before promotion: %w", user, err)
		}
		if !demoted {
			return false, nil
		}
	}

	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelManageModerators)
	if err != nil {
		return false, err
	}
	if err := r.api.AddModerator(ctx, token, channel, user); err != nil {
		return false, fmt.Errorf("failed to add moderator %d on channel %d: %w", user, channel, err)
	}
	r.afterMutation(helix.KindModerator, channel, "add")

	return r.IsModerator(ctx, channel, user)
}

// RemoveModerator revokes moderator status from a user on a channel
// and reports whether the revocation verifiably took effect. A user
// who is not a moderator short-circuits with false.
func (r *Resolver) RemoveModerator(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}

	holds, err := r.IsModerator(ctx, channel, user)
	if err != nil {
		return false, err
	}
	if !holds {
		return false, nil
	}

	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelManageModerators)
	if err != nil {
		return false, err
	}
	if err := r.api.RemoveModerator(ctx, token, channel, user); err != nil {
		return false, fmt.Errorf("failed to remove moderator %d on channel %d: %w", user, channel, err)
	}
	r.afterMutation(helix.KindModerator, channel, "remove")

	stillHolds, err := r.IsModerator(ctx, channel, user)
	if err != nil {
		return false, err
	}
	return !stillHolds, nil
}

// AddVIP grants VIP status to a user on a channel and reports whether
// the user verifiably holds it afterwards. An existing VIP
// short-circuits with false; a moderator is demoted first.
func (r *Resolver) AddVIP(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}

	already, err := r.IsVIP(ctx, channel, user)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	isModerator, err := r.IsModerator(ctx, channel, user)
	if err != nil {
		return false, err
	}
	if isModerator {
		demoted, err := r.RemoveModerator(ctx, channel, user)
		if err != nil {
			return false, fmt.Errorf("failed to demote moderator %d before promotion: %w", user, err)
		}
		if !demoted {
			return false, nil
		}
	}

	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelManageVIPs)
	if err != nil {
		return false, err
	}
	if err := r.api.AddVIP(ctx, token, channel, user); err != nil {
		return false, fmt.Errorf("failed to add VIP %d on channel %d: %w", user, channel, err)
	}
	r.afterMutation(helix.KindVIP, channel, "add")

	return r.IsVIP(ctx, channel, user)
}

// RemoveVIP revokes VIP status from a user on a channel and reports
// whether the revocation verifiably took effect. A user who is not a
// VIP short-circuits with false.
func (r *Resolver) RemoveVIP(ctx context.Context, channel, user helix.Principal) (bool, error) {
	if user == channel {
		return false, nil
	}

	holds, err := r.IsVIP(ctx, channel, user)
	if err != nil {
		return false, err
	}
	if !holds {
		return false, nil
	}

	return r.removeVIP(ctx, channel, user)
}

// removeVIP performs the revocation without the precondition check,
// shared by RemoveVIP and the promotion demotion path.
func (r *Resolver) removeVIP(ctx context.Context, channel, user helix.Principal) (bool, error) {
	token, err := r.tokens.GetAccessToken(ctx, channel, helix.ScopeChannelManageVIPs)
	if err != nil {
		return false, err
	}
	if err := r.api.RemoveVIP(ctx, token, channel, user); err != nil {
		return false, fmt.Errorf("failed to remove VIP %d on channel %d: %w", user, channel, err)
	}
	r.afterMutation(helix.KindVIP, channel, "remove")

	stillHolds, err := r.IsVIP(ctx, channel, user)
	if err != nil {
		return false, err
	}
	return !stillHolds, nil
}

// afterMutation drops the channel's cached entry for the mutated
// kind. The containment heuristic cannot observe removals, so a
// mutated entry must be refetched rather than trusted.
func (r *Resolver) afterMutation(kind helix.RelationKind, channel helix.Principal, action string) {
	r.mu.Lock()
	delete(r.cacheFor(kind), channel)
	r.mu.Unlock()

	if r.inst != nil {
		r.inst.Metrics().RoleMutations.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String(instrumentation.AttrKind, kind.String()),
			attribute.String(instrumentation.AttrAction, action),
		))
	}
	r.logger.Info("role mutation applied",
		"kind", kind.String(),
		"channel", channel,
		"action", action)
}
