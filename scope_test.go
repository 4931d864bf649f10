package helix

import (
	"reflect"
	"testing"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Scope
		wantErr bool
	}{
		{name: "known scope", input: "moderation:read", want: ScopeModerationRead},
		{name: "surrounding whitespace", input: "  channel:read:vips ", want: ScopeChannelReadVIPs},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown scope", input: "channel:read:everything", wantErr: true},
		{name: "case sensitive", input: "Moderation:Read", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScope(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseScope(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseScopes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Scope
		wantErr bool
	}{
		{
			name:  "space separated",
			input: "moderation:read channel:read:vips",
			want:  []Scope{ScopeModerationRead, ScopeChannelReadVIPs},
		},
		{
			name:  "plus separated",
			input: "moderation:read+channel:read:editors",
			want:  []Scope{ScopeModerationRead, ScopeChannelReadEditors},
		},
		{name: "empty list", input: "", want: []Scope{}},
		{name: "unknown entry", input: "moderation:read bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScopes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScopes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseScopes(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDedupeScopes(t *testing.T) {
	got := DedupeScopes([]Scope{
		ScopeModerationRead,
		ScopeChannelReadVIPs,
		ScopeModerationRead,
		ScopeChannelReadEditors,
	})
	want := []Scope{ScopeChannelReadEditors, ScopeChannelReadVIPs, ScopeModerationRead}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeScopes() = %v, want %v", got, want)
	}
}
