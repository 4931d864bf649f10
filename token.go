package helix

import "time"

// AuthToken is the access/refresh token pair and metadata for one
// principal. A token value is never mutated: a successful refresh
// produces a new AuthToken with the same ID that supersedes the stored
// one.
type AuthToken struct {
	// ID is the principal the token was issued for.
	ID Principal

	// AccessToken and RefreshToken are opaque vendor strings.
	AccessToken  string
	RefreshToken string

	// Scopes granted to this token pair. Immutable for the lifetime
	// of the pair.
	Scopes []Scope

	// IssuedAt is when the token was obtained; ExpiresIn is the
	// vendor-reported lifetime in seconds.
	IssuedAt  time.Time
	ExpiresIn int
}

// NextRefreshAt is when the renewal service should refresh the token:
// IssuedAt plus the reported lifetime.
func (t *AuthToken) NextRefreshAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// HasScopes reports whether the token's scope set is a superset of the
// given scopes.
func (t *AuthToken) HasScopes(scopes ...Scope) bool {
	for _, want := range scopes {
		found := false
		for _, have := range t.Scopes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MissingScopes returns the subset of scopes the token does not hold.
func (t *AuthToken) MissingScopes(scopes ...Scope) []Scope {
	var missing []Scope
	for _, want := range scopes {
		if !t.HasScopes(want) {
			missing = append(missing, want)
		}
	}
	return missing
}
