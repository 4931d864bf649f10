package roles

import (
	"context"
	"fmt"

	"github.com/streamkit/helix"
)

// ResolveUser fetches the enriched profile for a principal reference,
// whether it names the account by id or by login. The lookup is
// authorized with the given principal's token; no extra scope is
// required.
func (r *Resolver) ResolveUser(ctx context.Context, authorizer helix.Principal, ref helix.PrincipalRef) (helix.User, error) {
	if ref.IsZero() {
		return helix.User{}, fmt.Errorf("empty principal reference")
	}

	token, err := r.tokens.GetAccessToken(ctx, authorizer)
	if err != nil {
		return helix.User{}, err
	}

	var users []helix.User
	if id, ok := ref.ID(); ok {
		users, err = r.api.UsersByID(ctx, token, []helix.Principal{id})
	} else {
		name, _ := ref.Name()
		users, err = r.api.UsersByLogin(ctx, token, []string{name})
	}
	if err != nil {
		return helix.User{}, err
	}
	if len(users) == 0 {
		return helix.User{}, fmt.Errorf("no user found for %s", ref)
	}
	return users[0], nil
}

// Users fetches enriched profiles for a batch of principal
// references. Ids and logins are looked up separately, each chunked
// at the page cap; the result preserves no particular order.
func (r *Resolver) Users(ctx context.Context, authorizer helix.Principal, refs []helix.PrincipalRef) ([]helix.User, error) {
	token, err := r.tokens.GetAccessToken(ctx, authorizer)
	if err != nil {
		return nil, err
	}

	var ids []helix.Principal
	var logins []string
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		if id, ok := ref.ID(); ok {
			ids = append(ids, id)
		} else if name, ok := ref.Name(); ok {
			logins = append(logins, name)
		}
	}

	var users []helix.User
	if len(ids) > 0 {
		byID, err := r.api.UsersByID(ctx, token, ids)
		if err != nil {
			return nil, err
		}
		users = append(users, byID...)
	}
	if len(logins) > 0 {
		byLogin, err := r.api.UsersByLogin(ctx, token, logins)
		if err != nil {
			return nil, err
		}
		users = append(users, byLogin...)
	}
	return users, nil
}

// UserEmail returns the email address on a principal's own account.
// The principal's token must carry the user:read:email scope.
func (r *Resolver) UserEmail(ctx context.Context, id helix.Principal) (string, error) {
	token, err := r.tokens.GetAccessToken(ctx, id, helix.ScopeUserReadEmail)
	if err != nil {
		return "", err
	}
	users, err := r.api.UsersByID(ctx, token, []helix.Principal{id})
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", fmt.Errorf("no user found for principal %d", id)
	}
	user := users[0]
	if user.Email == "" {
		return "", fmt.Errorf("no email returned for principal %d", id)
	}
	return user.Email, nil
}
