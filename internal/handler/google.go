package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/google"
	mw "github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
	"github.com/iliyamo/shift-calendar/internal/service"
)

const (
	// oauthStateTTL bounds how long a started authorization flow can
	// sit before its callback is rejected.
	oauthStateTTL = 10 * time.Minute

	// maxEventSpan caps the requested window, bounding the per-request
	// fan-out cost against the provider.
	maxEventSpan = 90 * 24 * time.Hour
)

// GoogleHandler drives the provider token lifecycle: begin-auth,
// callback, status, visibility toggle, disconnect and the event proxy.
// Provider failures degrade to typed JSON errors; they never take the
// request handler down.
type GoogleHandler struct {
	Tokens GoogleTokenStore
	States OAuthStateStore
	Client GoogleClient
}

func NewGoogleHandler(t GoogleTokenStore, s OAuthStateStore, g GoogleClient) *GoogleHandler {
	return &GoogleHandler{Tokens: t, States: s, Client: g}
}

// Auth begins the authorization flow: persist a fresh single-use state
// bound to the caller and hand back the provider URL embedding it.
func (h *GoogleHandler) Auth(c echo.Context) error {
	user := mw.CurrentUser(c)

	// Operator misconfiguration is a server error, not a client one.
	if !h.Client.Configured() {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "google oauth not configured"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	state := uuid.NewString()
	if err := h.States.Create(ctx, state, user.UserID, time.Now().Add(oauthStateTTL)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store state failed"})
	}
	url, err := h.Client.BuildAuthURL(state)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "google oauth not configured"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Callback completes the flow. The state must exist, be unexpired and
// belong to the caller; it is consumed before the code exchange so a
// replayed callback fails. This leg is a browser navigation, so success
// is a redirect home rather than JSON.
func (h *GoogleHandler) Callback(c echo.Context) error {
	user := mw.CurrentUser(c)

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing authorization code"})
	}
	if state == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing state parameter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	stored, err := h.States.Get(ctx, state)
	if err != nil || stored.UserID != user.UserID || time.Now().After(stored.ExpiresAt) {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired oauth state, please try again"})
	}
	// Single-use: consumed before the exchange, so a second callback
	// with the same state cannot replay it.
	if err := h.States.Delete(ctx, state); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "consume state failed"})
	}

	tokens, err := h.Client.ExchangeCode(ctx, code)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to exchange authorization code"})
	}
	// Without a refresh token the connection would die at the first
	// expiry; tell the user the actionable fix instead of storing it.
	if tokens.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no refresh token received, please try disconnecting and reconnecting"})
	}

	t := model.GoogleToken{
		UserID:       user.UserID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		Scope:        tokens.Scope,
		Visible:      true,
	}
	if err := h.Tokens.Upsert(ctx, t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store tokens failed"})
	}

	return c.Redirect(http.StatusFound, "/")
}

// Status reports {connected, visible}.
func (h *GoogleHandler) Status(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tokens.Get(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"connected": false, "visible": false})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"connected": true, "visible": t.Visible})
}

// Toggle flips overlay visibility without touching tokens.
func (h *GoogleHandler) Toggle(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tokens.Get(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "google calendar not connected"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Tokens.SetVisible(ctx, user.UserID, !t.Visible); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"visible": !t.Visible})
}

// Disconnect revokes the refresh token best-effort and deletes the row
// unconditionally. Disconnecting while already disconnected succeeds.
func (h *GoogleHandler) Disconnect(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tokens.Get(ctx, user.UserID)
	if err == nil {
		// The user's intent is local disconnection; upstream refusal to
		// revoke must not block it.
		client, refresh := h.Client, t.RefreshToken
		service.FireAndForget("google-revoke", func(ctx context.Context) error {
			return client.Revoke(ctx, refresh)
		})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Tokens.Delete(ctx, user.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "disconnect failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Events proxies the caller's provider events for a bounded window,
// refreshing the access token first when it has expired.
func (h *GoogleHandler) Events(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	t, err := h.Tokens.Get(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "google calendar not connected"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	// Hidden overlay: empty result without contacting the provider.
	if !t.Visible {
		return c.JSON(http.StatusOK, []google.Event{})
	}

	timeMin, err := time.Parse(time.RFC3339, c.QueryParam("timeMin"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "timeMin and timeMax must be valid ISO 8601 dates"})
	}
	timeMax, err := time.Parse(time.RFC3339, c.QueryParam("timeMax"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "timeMin and timeMax must be valid ISO 8601 dates"})
	}
	if !timeMax.After(timeMin) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "timeMax must be after timeMin"})
	}
	if timeMax.Sub(timeMin) > maxEventSpan {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date range must not exceed 90 days"})
	}

	accessToken := t.AccessToken
	if !time.Now().Before(t.ExpiresAt) {
		refreshed, err := h.Client.Refresh(ctx, t.RefreshToken)
		if err != nil {
			// A dead refresh token means the connection is gone for
			// good; drop the row so status reflects reality.
			_ = h.Tokens.Delete(ctx, user.UserID)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "google token expired, please reconnect"})
		}
		accessToken = refreshed.AccessToken
		expiresAt := time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
		if err := h.Tokens.UpdateAccess(ctx, user.UserID, accessToken, expiresAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store tokens failed"})
		}
	}

	events, err := h.Client.FetchAllEvents(ctx, accessToken, timeMin, timeMax)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch calendar events"})
	}
	return c.JSON(http.StatusOK, events)
}
