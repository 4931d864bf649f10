// Package storage defines the interface for persisting one encrypted
// token record per principal, and the codec that turns an AuthToken
// into its at-rest blob form.
package storage

import (
	"context"
	"errors"

	"github.com/streamkit/helix"
)

// ErrNotFound is returned by Get when no token is stored for the
// principal.
var ErrNotFound = errors.New("token not found")

// TokenStore persists exactly one live token record per principal.
// Put upserts by the token's ID. Implementations must serialize
// concurrent access: the store handle is shared by every renewal task
// and role-resolver call.
// All methods accept context.Context for cancellation.
type TokenStore interface {
	// Get retrieves the token for a principal, or ErrNotFound.
	Get(ctx context.Context, id helix.Principal) (*helix.AuthToken, error)

	// GetAll retrieves every stored token.
	GetAll(ctx context.Context) ([]*helix.AuthToken, error)

	// Put stores a token, replacing any existing record for the
	// same principal.
	Put(ctx context.Context, token *helix.AuthToken) error

	// Delete removes the token for a principal. Deleting an absent
	// principal is not an error.
	Delete(ctx context.Context, id helix.Principal) error
}
