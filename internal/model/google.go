package model

import "time"

// OAuthState is a single-use CSRF token for the Google authorization
// flow, stored in `oauth_states`. It is bound to the initiating user
// and consumed (deleted) on the first matching callback; stale entries
// are removed by the periodic sweep.
//
// Fields:
//  State     – unguessable token (primary key).
//  UserID    – user that began the flow.
//  ExpiresAt – absolute expiry (10 minutes after issuance).
type OAuthState struct {
	State     string    // oauth_states.state
	UserID    uint64    // oauth_states.user_id
	ExpiresAt time.Time // oauth_states.expires_at
}

// GoogleToken holds a user's Google Calendar credentials, one row per
// user in `google_tokens`. The access token and its expiry are updated
// in place on refresh; the whole row is deleted on disconnect or when a
// refresh fails irrecoverably.
//
// Fields:
//  UserID       – owner of the connection (primary key).
//  AccessToken  – short-lived bearer token for calendar reads.
//  RefreshToken – long-lived token used to mint new access tokens.
//  ExpiresAt    – absolute expiry of the access token.
//  Scope        – granted OAuth scope string.
//  Visible      – whether overlay events are surfaced (toggle, default true).
type GoogleToken struct {
	UserID       uint64    // google_tokens.user_id
	AccessToken  string    // google_tokens.access_token
	RefreshToken string    // google_tokens.refresh_token
	ExpiresAt    time.Time // google_tokens.expires_at
	Scope        string    // google_tokens.scope
	Visible      bool      // google_tokens.visible
}
