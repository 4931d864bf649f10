package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/security"
	"github.com/streamkit/helix/storage"
)

func newStores(t *testing.T) map[string]*Store {
	t.Helper()
	enc, err := security.NewEncryptor(security.DeriveKey("memory-test-secret"))
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	return map[string]*Store{
		"plain":   New(nil, nil),
		"encoded": New(storage.NewCodec(enc), nil),
	}
}

func testToken(id helix.Principal) *helix.AuthToken {
	return &helix.AuthToken{
		ID:           id,
		AccessToken:  "access-" + id.String(),
		RefreshToken: "refresh-" + id.String(),
		Scopes:       []helix.Scope{helix.ScopeModerationRead},
		IssuedAt:     time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		ExpiresIn:    3600,
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
			}

			want := testToken(42)
			if err := store.Put(ctx, want); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			got, err := store.Get(ctx, 42)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}
			if !got.IssuedAt.Equal(want.IssuedAt) || got.ExpiresIn != want.ExpiresIn {
				t.Errorf("Get() timestamps = %v/%d, want %v/%d", got.IssuedAt, got.ExpiresIn, want.IssuedAt, want.ExpiresIn)
			}

			if err := store.Delete(ctx, 42); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_PutUpserts(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(ctx, testToken(7)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			replacement := testToken(7)
			replacement.AccessToken = "access-replaced"
			if err := store.Put(ctx, replacement); err != nil {
				t.Fatalf("Put() replacement error = %v", err)
			}

			got, err := store.Get(ctx, 7)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.AccessToken != "access-replaced" {
				t.Errorf("AccessToken = %q, want %q", got.AccessToken, "access-replaced")
			}
			if store.Len() != 1 {
				t.Errorf("Len() = %d, want 1", store.Len())
			}
		})
	}
}

func TestStore_GetAll(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []helix.Principal{1, 2, 3} {
				if err := store.Put(ctx, testToken(id)); err != nil {
					t.Fatalf("Put(%d) error = %v", id, err)
				}
			}

			tokens, err := store.GetAll(ctx)
			if err != nil {
				t.Fatalf("GetAll() error = %v", err)
			}
			if len(tokens) != 3 {
				t.Fatalf("GetAll() returned %d tokens, want 3", len(tokens))
			}

			seen := make(map[helix.Principal]bool)
			for _, token := range tokens {
				seen[token.ID] = true
			}
			for _, id := range []helix.Principal{1, 2, 3} {
				if !seen[id] {
					t.Errorf("GetAll() missing principal %d", id)
				}
			}
		})
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := New(nil, nil)

	if err := store.Put(ctx, testToken(9)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	first, err := store.Get(ctx, 9)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	first.AccessToken = "mutated"
	first.Scopes[0] = helix.ScopeChatRead

	second, err := store.Get(ctx, 9)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.AccessToken == "mutated" {
		t.Error("mutating a returned token leaked into the store")
	}
	if second.Scopes[0] != helix.ScopeModerationRead {
		t.Error("mutating returned scopes leaked into the store")
	}
}
