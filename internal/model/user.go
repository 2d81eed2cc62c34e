package model

import "time"

// User represents an application user record as stored in the `users`
// table. Accounts are created only through the two-phase registration
// flow: the row appears at successful code verification, never at
// initiate time. The password hash is bcrypt and is never exposed
// through any handler response.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored trimmed and lowercased).
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}

// OTC models a pending registration in the `otc` table. At most one
// row exists per email; re-initiating replaces it. The password is
// hashed at initiate time so the raw password never persists anywhere.
//
// Fields:
//  Email        – the address being verified (primary key).
//  Code         – 6-digit numeric verification code.
//  PasswordHash – bcrypt hash computed at initiate time.
//  ExpiresAt    – absolute expiry (10 minutes after issuance).
type OTC struct {
	Email        string    // otc.email
	Code         string    // otc.code
	PasswordHash string    // otc.password_hash
	ExpiresAt    time.Time // otc.expires_at
}
