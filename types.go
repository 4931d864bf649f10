package helix

import (
	"fmt"
	"strings"
	"time"
)

// Principal is a numeric Twitch account identifier. A channel and a
// user are both principals; the distinction is only their role in a
// relation.
type Principal int64

func (p Principal) String() string {
	return fmt.Sprintf("%d", int64(p))
}

// PrincipalRef identifies an account either by numeric id or by login
// name. Exactly one of the two is set; a single resolver turns a ref
// into an enriched User.
type PrincipalRef struct {
	id   Principal
	name string
}

// ByID references an account by its numeric id.
func ByID(id Principal) PrincipalRef {
	return PrincipalRef{id: id}
}

// ByName references an account by login name. Login names are
// case-insensitive; the ref stores the lowercase form.
func ByName(name string) PrincipalRef {
	return PrincipalRef{name: strings.ToLower(strings.TrimSpace(name))}
}

// ID returns the numeric id and whether the ref carries one.
func (r PrincipalRef) ID() (Principal, bool) {
	return r.id, r.id != 0
}

// Name returns the login name and whether the ref carries one.
func (r PrincipalRef) Name() (string, bool) {
	return r.name, r.name != ""
}

// IsZero reports whether the ref references nothing.
func (r PrincipalRef) IsZero() bool {
	return r.id == 0 && r.name == ""
}

func (r PrincipalRef) String() string {
	if r.id != 0 {
		return r.id.String()
	}
	return r.name
}

// User is the enriched profile for a principal as returned by the
// Helix users endpoint. Email is only populated when the request was
// authorized with the user:read:email scope.
type User struct {
	ID              Principal
	Login           string
	DisplayName     string
	Type            string
	BroadcasterType string
	Description     string
	ProfileImageURL string
	Email           string
	CreatedAt       time.Time
}

// RelationKind enumerates the channel role relationships tracked by
// the roles resolver.
type RelationKind int

const (
	KindModerator RelationKind = iota
	KindEditor
	KindVIP
	KindSubscriber
	KindFollower
)

func (k RelationKind) String() string {
	switch k {
	case KindModerator:
		return "moderator"
	case KindEditor:
		return "editor"
	case KindVIP:
		return "vip"
	case KindSubscriber:
		return "subscriber"
	case KindFollower:
		return "follower"
	default:
		return fmt.Sprintf("relation(%d)", int(k))
	}
}

// SubscriptionMeta carries the subscriber-specific relation metadata.
// Gifter is zero unless the subscription was gifted.
type SubscriptionMeta struct {
	Tier   string
	IsGift bool
	Gifter Principal
}

// RelationRecord is a typed edge between a user and a channel. Records
// are immutable once constructed; the resolver replaces whole cache
// entries, never patches individual records.
type RelationRecord struct {
	User    User
	Channel Principal
	Kind    RelationKind

	// Subscription is set only for KindSubscriber.
	Subscription *SubscriptionMeta

	// FollowedAt is set only for KindFollower.
	FollowedAt time.Time
}
