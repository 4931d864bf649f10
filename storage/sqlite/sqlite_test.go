package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/instrumentation"
	"github.com/streamkit/helix/security"
	"github.com/streamkit/helix/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	enc, err := security.NewEncryptor(security.DeriveKey("sqlite-test-secret"))
	require.NoError(t, err)

	store, err := Open(filepath.Join(t.TempDir(), "tokens.db"), storage.NewCodec(enc), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_RequiresCodec(t *testing.T) {
	_, err := Open(":memory:", nil, nil)
	require.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	want := &helix.AuthToken{
		ID:           42,
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		Scopes:       []helix.Scope{helix.ScopeModerationRead, helix.ScopeChannelReadVIPs},
		IssuedAt:     time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC),
		ExpiresIn:    3600,
	}
	require.NoError(t, store.Put(ctx, want))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.Equal(t, want.Scopes, got.Scopes)
	assert.True(t, got.IssuedAt.Equal(want.IssuedAt))
	assert.Equal(t, want.ExpiresIn, got.ExpiresIn)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_PutUpserts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := &helix.AuthToken{ID: 7, AccessToken: "old", RefreshToken: "r1", IssuedAt: time.Now().UTC(), ExpiresIn: 60}
	require.NoError(t, store.Put(ctx, first))

	second := &helix.AuthToken{ID: 7, AccessToken: "new", RefreshToken: "r2", IssuedAt: time.Now().UTC(), ExpiresIn: 120}
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_DeleteAndGetAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []helix.Principal{1, 2, 3} {
		token := &helix.AuthToken{ID: id, AccessToken: "a", RefreshToken: "r", IssuedAt: time.Now().UTC(), ExpiresIn: 60}
		require.NoError(t, store.Put(ctx, token))
	}

	require.NoError(t, store.Delete(ctx, 2))
	// Deleting an absent principal is not an error.
	require.NoError(t, store.Delete(ctx, 2))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	ids := make(map[helix.Principal]bool)
	for _, token := range all {
		ids[token.ID] = true
	}
	assert.True(t, ids[1])
	assert.True(t, ids[3])
	assert.False(t, ids[2])
}

func TestStore_Instrumented(t *testing.T) {
	ctx := context.Background()
	inst, err := instrumentation.New(instrumentation.Config{ServiceName: "sqlite-test", Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Shutdown(ctx) })

	enc, err := security.NewEncryptor(security.DeriveKey("sqlite-test-secret"))
	require.NoError(t, err)

	store, err := Open(filepath.Join(t.TempDir(), "tokens.db"), storage.NewCodec(enc), nil,
		WithInstrumentation(inst))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	token := &helix.AuthToken{ID: 5, AccessToken: "a", RefreshToken: "r", IssuedAt: time.Now().UTC(), ExpiresIn: 60}
	require.NoError(t, store.Put(ctx, token))

	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)

	// The error path records the same span and metrics.
	_, err = store.Get(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Delete(ctx, 5))
	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_ReusesFileAcrossOpens(t *testing.T) {
	ctx := context.Background()
	enc, err := security.NewEncryptor(security.DeriveKey("sqlite-test-secret"))
	require.NoError(t, err)
	codec := storage.NewCodec(enc)
	path := filepath.Join(t.TempDir(), "tokens.db")

	store, err := Open(path, codec, nil)
	require.NoError(t, err)
	token := &helix.AuthToken{ID: 11, AccessToken: "persisted", RefreshToken: "r", IssuedAt: time.Now().UTC(), ExpiresIn: 60}
	require.NoError(t, store.Put(ctx, token))
	require.NoError(t, store.Close())

	reopened, err := Open(path, codec, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.AccessToken)
}
