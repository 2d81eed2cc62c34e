// Package router wires the HTTP surface: which handler serves which
// path, and which middleware guards which group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/handler"
	"github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/ratelimit"
)

// Handlers collects everything Register needs.
type Handlers struct {
	Auth     *handler.AuthHandler
	Labels   *handler.LabelHandler
	Calendar *handler.CalendarHandler
	Shares   *handler.ShareHandler
	Google   *handler.GoogleHandler
}

// Register mounts all routes. Identity derivation runs for every /api
// request (handlers relying on it sit behind RequireAuth); the mutating
// auth endpoints are additionally throttled per endpoint class so one
// class cannot exhaust another's budget.
func Register(e *echo.Echo, jwtSecret string, users middleware.UserLookup, limiter *ratelimit.Limiter, h Handlers) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	api.Use(middleware.DeriveIdentity(jwtSecret, users))

	// Session endpoints; initiate/verify/login are rate limited.
	auth := api.Group("/auth")
	auth.POST("/register/initiate", h.Auth.RegisterInitiate, middleware.RateLimit(limiter, "register"))
	auth.POST("/register/verify", h.Auth.RegisterVerify, middleware.RateLimit(limiter, "verify"))
	auth.POST("/login", h.Auth.Login, middleware.RateLimit(limiter, "login"))
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me)

	// Everything below requires a non-null identity.
	protected := api.Group("")
	protected.Use(middleware.RequireAuth())

	protected.GET("/labels", h.Labels.List)
	protected.POST("/labels", h.Labels.Create)
	protected.PUT("/labels/:id", h.Labels.Update)
	protected.DELETE("/labels/:id", h.Labels.Delete)

	protected.GET("/calendar", h.Calendar.Get)
	protected.PUT("/calendar", h.Calendar.Put)

	protected.GET("/shares", h.Shares.List)
	protected.POST("/shares", h.Shares.Invite)
	protected.DELETE("/shares/:id", h.Shares.Revoke)
	protected.GET("/shared-calendars", h.Shares.SharedWithMe)
	protected.GET("/shared-calendars/:ownerEmail", h.Shares.GetSharedCalendar)

	protected.GET("/google/auth", h.Google.Auth)
	protected.GET("/google/callback", h.Google.Callback)
	protected.GET("/google/status", h.Google.Status)
	protected.POST("/google/toggle", h.Google.Toggle)
	protected.POST("/google/disconnect", h.Google.Disconnect)
	protected.GET("/google/events", h.Google.Events)
}
