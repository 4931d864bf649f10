package storage

import (
	"testing"
	"time"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/security"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	enc, err := security.NewEncryptor(security.DeriveKey("test-client-secret"))
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	return NewCodec(enc)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token *helix.AuthToken
	}{
		{
			name: "full token",
			token: &helix.AuthToken{
				ID:           42,
				AccessToken:  "access-abc123",
				RefreshToken: "refresh-def456",
				Scopes:       []helix.Scope{helix.ScopeModerationRead, helix.ScopeChannelReadVIPs},
				IssuedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				ExpiresIn:    3600,
			},
		},
		{
			name: "no scopes",
			token: &helix.AuthToken{
				ID:           7,
				AccessToken:  "a",
				RefreshToken: "r",
				IssuedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				ExpiresIn:    14400,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := codec.Encode(tt.token)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, err := codec.Decode(blob)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if got.ID != tt.token.ID {
				t.Errorf("ID = %d, want %d", got.ID, tt.token.ID)
			}
			if got.AccessToken != tt.token.AccessToken {
				t.Errorf("AccessToken = %q, want %q", got.AccessToken, tt.token.AccessToken)
			}
			if got.RefreshToken != tt.token.RefreshToken {
				t.Errorf("RefreshToken = %q, want %q", got.RefreshToken, tt.token.RefreshToken)
			}
			if len(got.Scopes) != len(tt.token.Scopes) {
				t.Fatalf("Scopes = %v, want %v", got.Scopes, tt.token.Scopes)
			}
			for i := range got.Scopes {
				if got.Scopes[i] != tt.token.Scopes[i] {
					t.Errorf("Scopes[%d] = %q, want %q", i, got.Scopes[i], tt.token.Scopes[i])
				}
			}
			if !got.IssuedAt.Equal(tt.token.IssuedAt) {
				t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, tt.token.IssuedAt)
			}
			if got.ExpiresIn != tt.token.ExpiresIn {
				t.Errorf("ExpiresIn = %d, want %d", got.ExpiresIn, tt.token.ExpiresIn)
			}
			if !got.NextRefreshAt().Equal(tt.token.NextRefreshAt()) {
				t.Errorf("NextRefreshAt = %v, want %v", got.NextRefreshAt(), tt.token.NextRefreshAt())
			}
		})
	}
}

func TestCodec_DecodeFailures(t *testing.T) {
	codec := newTestCodec(t)

	token := &helix.AuthToken{ID: 1, AccessToken: "a", RefreshToken: "r", IssuedAt: time.Now().UTC(), ExpiresIn: 60}
	blob, err := codec.Encode(token)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	t.Run("garbage blob", func(t *testing.T) {
		if _, err := codec.Decode([]byte("not a token blob")); err == nil {
			t.Error("Decode() accepted garbage")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		otherEnc, err := security.NewEncryptor(security.DeriveKey("another-secret"))
		if err != nil {
			t.Fatalf("NewEncryptor() error = %v", err)
		}
		if _, err := NewCodec(otherEnc).Decode(blob); err == nil {
			t.Error("Decode() accepted blob sealed under a different key")
		}
	})
}
