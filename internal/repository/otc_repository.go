package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/shift-calendar/internal/model"
)

// OTCRepo manages pending registrations in the `otc` table. One row per
// email: Store is an upsert, so re-initiating a registration replaces
// the previous code instead of accumulating rows.
type OTCRepo struct{ DB *sql.DB }

func NewOTCRepo(db *sql.DB) *OTCRepo { return &OTCRepo{DB: db} }

// Store upserts the pending registration for an email.
func (r *OTCRepo) Store(ctx context.Context, email, code, passwordHash string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO otc (email, code, password_hash, expires_at) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE code=VALUES(code), password_hash=VALUES(password_hash), expires_at=VALUES(expires_at)`,
		email, code, passwordHash, expiresAt.UTC())
	return err
}

// Get returns the pending registration for an email, ErrNotFound if none.
func (r *OTCRepo) Get(ctx context.Context, email string) (model.OTC, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var o model.OTC
	err := r.DB.QueryRowContext(ctx,
		"SELECT email,code,password_hash,expires_at FROM otc WHERE email=? LIMIT 1",
		email).Scan(&o.Email, &o.Code, &o.PasswordHash, &o.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OTC{}, ErrNotFound
	}
	return o, err
}

// Delete removes the pending registration for an email.
func (r *OTCRepo) Delete(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx, "DELETE FROM otc WHERE email=?", email)
	return err
}

// DeleteExpired removes all rows whose expiry has passed. Run by the
// periodic sweep; an un-swept expired row is still treated as expired
// everywhere it is read.
func (r *OTCRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM otc WHERE expires_at < ?", now.UTC())
	return err
}
