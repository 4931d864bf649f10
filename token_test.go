package helix

import (
	"reflect"
	"testing"
	"time"
)

func TestNextRefreshAt(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token := &AuthToken{IssuedAt: issued, ExpiresIn: 3600}

	want := issued.Add(time.Hour)
	if got := token.NextRefreshAt(); !got.Equal(want) {
		t.Errorf("NextRefreshAt() = %v, want %v", got, want)
	}
}

func TestHasScopes(t *testing.T) {
	token := &AuthToken{Scopes: []Scope{ScopeModerationRead, ScopeChannelReadVIPs}}

	tests := []struct {
		name   string
		scopes []Scope
		want   bool
	}{
		{name: "no requirement", scopes: nil, want: true},
		{name: "single held", scopes: []Scope{ScopeModerationRead}, want: true},
		{name: "all held", scopes: []Scope{ScopeModerationRead, ScopeChannelReadVIPs}, want: true},
		{name: "one missing", scopes: []Scope{ScopeModerationRead, ScopeChannelManageVIPs}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := token.HasScopes(tt.scopes...); got != tt.want {
				t.Errorf("HasScopes(%v) = %v, want %v", tt.scopes, got, tt.want)
			}
		})
	}
}

func TestMissingScopes(t *testing.T) {
	token := &AuthToken{Scopes: []Scope{ScopeModerationRead}}

	got := token.MissingScopes(ScopeModerationRead, ScopeChannelManageVIPs, ScopeChannelReadEditors)
	want := []Scope{ScopeChannelManageVIPs, ScopeChannelReadEditors}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingScopes() = %v, want %v", got, want)
	}

	if missing := token.MissingScopes(ScopeModerationRead); missing != nil {
		t.Errorf("MissingScopes() = %v, want nil for fully covered set", missing)
	}
}
