package middleware // declare the middleware package; contains reusable HTTP middleware functions

// identity.go derives the requester's identity from the session cookie.
// Absence, a malformed token, an invalid or expired signature, or a
// token referencing a user that no longer exists all yield an anonymous
// request rather than an error; rejecting anonymous access is the job
// of RequireAuth on the routes that need it.

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/utils"
)

// Identity is the authenticated principal stored in the request
// context. A nil Identity means anonymous.
type Identity struct {
	UserID uint64
	Email  string
}

// UserLookup is the slice of the user repository the middleware needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

const identityKey = "identity"

// DeriveIdentity returns middleware that resolves the session cookie
// into an Identity. The user row is re-read on every request so a
// token surviving an externally deleted account derives anonymous.
func DeriveIdentity(secret string, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(utils.SessionCookie)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			userID, _, err := utils.ParseSessionToken(secret, cookie.Value)
			if err != nil {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, userID)
			if err != nil {
				return next(c)
			}

			c.Set(identityKey, &Identity{UserID: u.ID, Email: u.Email})
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests with 401. Mount it on every
// group that serves per-user resources.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}

// CurrentUser returns the request's identity, nil when anonymous.
func CurrentUser(c echo.Context) *Identity {
	if id, ok := c.Get(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// SetCurrentUser stores an identity directly. Tests use this to build
// authenticated requests without minting cookies.
func SetCurrentUser(c echo.Context, id *Identity) {
	c.Set(identityKey, id)
}
