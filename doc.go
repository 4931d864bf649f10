// Package helix integrates an application with the Twitch Helix API.
// It manages per-account OAuth2 tokens (encrypted persistence, scoped
// lookups, autonomous renewal before expiry) and maintains cached
// channel role relationships: moderators, editors, VIPs, subscribers,
// and followers.
//
// The root package holds the shared domain types and the error
// taxonomy. The behavior lives in the subpackages: auth (token
// lifecycle and OAuth callback), roles (role cache resolver), api
// (Helix REST binding), storage (token persistence), and security
// (encryption at rest).
package helix
