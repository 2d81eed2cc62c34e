package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/shift-calendar/internal/model"
)

// OAuthStateRepo stores single-use CSRF states for the authorization
// flow. A state is deleted on its first successful callback match;
// expired leftovers are removed by the periodic sweep.
type OAuthStateRepo struct{ DB *sql.DB }

func NewOAuthStateRepo(db *sql.DB) *OAuthStateRepo { return &OAuthStateRepo{DB: db} }

// Create persists a fresh state bound to the initiating user.
func (r *OAuthStateRepo) Create(ctx context.Context, state string, userID uint64, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO oauth_states (state, user_id, expires_at) VALUES (?,?,?)",
		state, userID, expiresAt.UTC())
	return err
}

// Get returns a stored state, ErrNotFound if absent.
func (r *OAuthStateRepo) Get(ctx context.Context, state string) (model.OAuthState, error) {
	var s model.OAuthState
	err := r.DB.QueryRowContext(ctx,
		"SELECT state,user_id,expires_at FROM oauth_states WHERE state=? LIMIT 1",
		state).Scan(&s.State, &s.UserID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OAuthState{}, ErrNotFound
	}
	return s, err
}

// Delete consumes a state.
func (r *OAuthStateRepo) Delete(ctx context.Context, state string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM oauth_states WHERE state=?", state)
	return err
}

// DeleteExpired removes stale unconsumed states.
func (r *OAuthStateRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM oauth_states WHERE expires_at < ?", now.UTC())
	return err
}

// GoogleTokenRepo stores one Google credential row per user.
type GoogleTokenRepo struct{ DB *sql.DB }

func NewGoogleTokenRepo(db *sql.DB) *GoogleTokenRepo { return &GoogleTokenRepo{DB: db} }

// Get returns the user's token row, ErrNotFound if not connected.
func (r *GoogleTokenRepo) Get(ctx context.Context, userID uint64) (model.GoogleToken, error) {
	var t model.GoogleToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id,access_token,refresh_token,expires_at,scope,visible FROM google_tokens WHERE user_id=? LIMIT 1",
		userID).Scan(&t.UserID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.Scope, &t.Visible)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GoogleToken{}, ErrNotFound
	}
	return t, err
}

// Upsert creates or overwrites the user's token row. Only token
// material is replaced on conflict; the visible flag keeps its current
// value across reconnects (column default covers first insert).
func (r *GoogleTokenRepo) Upsert(ctx context.Context, t model.GoogleToken) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO google_tokens (user_id, access_token, refresh_token, expires_at, scope) VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE access_token=VALUES(access_token), refresh_token=VALUES(refresh_token),
		 expires_at=VALUES(expires_at), scope=VALUES(scope)`,
		t.UserID, t.AccessToken, t.RefreshToken, t.ExpiresAt.UTC(), t.Scope)
	return err
}

// UpdateAccess replaces the access token and its expiry after a refresh.
func (r *GoogleTokenRepo) UpdateAccess(ctx context.Context, userID uint64, accessToken string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE google_tokens SET access_token=?, expires_at=? WHERE user_id=?",
		accessToken, expiresAt.UTC(), userID)
	return err
}

// SetVisible flips the overlay visibility without touching tokens.
func (r *GoogleTokenRepo) SetVisible(ctx context.Context, userID uint64, visible bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE google_tokens SET visible=? WHERE user_id=?", visible, userID)
	return err
}

// Delete removes the user's token row. Deleting an absent row succeeds.
func (r *GoogleTokenRepo) Delete(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM google_tokens WHERE user_id=?", userID)
	return err
}
