package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionCookie is the cookie name carrying the session token.
const SessionCookie = "auth"

// SessionTTL is how long an issued session token stays valid. Tokens
// are self-contained and not server-side revocable; the short TTL is
// the accepted trade-off.
const SessionTTL = 7 * 24 * time.Hour

var errInvalidSession = errors.New("invalid session token")

// NewSessionToken builds and signs an HS256 JWT encoding the user's id
// and email. It returns the serialized token and its expiration time.
func NewSessionToken(secret string, userID uint64, email string) (string, time.Time, error) {
	exp := time.Now().UTC().Add(SessionTTL)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSessionToken verifies a session token and returns the user id
// and email it encodes. Any failure (bad signature, expired, wrong
// algorithm, malformed claims) yields an error; callers treat that as
// an anonymous request, not a hard failure.
func ParseSessionToken(secret, raw string) (uint64, string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidSession
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", errInvalidSession
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errInvalidSession
	}
	sub, ok := claims["sub"].(float64) // JWT numbers decode as float64
	if !ok || sub <= 0 {
		return 0, "", errInvalidSession
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return 0, "", errInvalidSession
	}
	return uint64(sub), email, nil
}
