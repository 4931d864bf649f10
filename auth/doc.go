// Package auth implements the token lifecycle: authorization-code
// exchange, encrypted persistence through a storage.TokenStore, and
// autonomous scheduled renewal.
//
// The Manager owns one OAuth2 client configuration and a token store.
// Each stored token belongs to one principal (the Twitch account id
// the token was issued for) and carries its own renewal timer; a
// successful refresh stores the replacement token and schedules the
// next renewal, a permanent rejection evicts the token and ends the
// chain.
//
// CallbackHandler is the http.Handler for the OAuth redirect URL. It
// feeds authorization codes into the Manager and answers with short
// plain-text pages aimed at the browser tab the user authorized in.
package auth
