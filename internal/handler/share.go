package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/config"
	mw "github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
	"github.com/iliyamo/shift-calendar/internal/service"
)

// ShareHandler serves the read-only calendar sharing endpoints. The
// invite and shared-calendar paths are enumeration-sensitive: their
// responses are built from the shared values below so that "no such
// user", "already shared" and "just shared" are indistinguishable, and
// likewise "no such owner" and "owner exists but never shared with you".
type ShareHandler struct {
	Cfg       config.Config
	Users     UserStore
	Shares    ShareStore
	Labels    LabelStore
	Calendars CalendarStore
	Mailer    service.Mailer
}

func NewShareHandler(cfg config.Config, u UserStore, s ShareStore, l LabelStore, c CalendarStore, m service.Mailer) *ShareHandler {
	return &ShareHandler{Cfg: cfg, Users: u, Shares: s, Labels: l, Calendars: c, Mailer: m}
}

// genericInviteSuccess is the single response shape for every invite
// outcome except the explicit self-share rejection.
func genericInviteSuccess(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "invitation sent"})
}

// sharedCalendarNotFound masks whether the owner exists at all.
func sharedCalendarNotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "calendar not found"})
}

type inviteReq struct {
	Email string `json:"email"`
}

// Invite grants the target user read access to the caller's calendar.
// The response never reveals whether the target email is registered.
func (h *ShareHandler) Invite(c echo.Context) error {
	user := mw.CurrentUser(c)

	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required"})
	}
	if email == user.Email {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot share with yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	target, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return genericInviteSuccess(c) // unknown address looks like success
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	exists, err := h.Shares.Exists(ctx, user.UserID, target.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if exists {
		return genericInviteSuccess(c) // duplicate invite: nothing to update
	}

	s := model.Share{ID: uuid.NewString(), OwnerID: user.UserID, SharedWithID: target.ID}
	if err := h.Shares.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create share failed"})
	}

	from, mailer, owner := h.Cfg.MailFrom, h.Mailer, user.Email
	service.FireAndForget("invite-email", func(ctx context.Context) error {
		return mailer.Send(ctx, from, email, "A calendar was shared with you",
			fmt.Sprintf("%s shared their shift calendar with you.", owner))
	})

	return genericInviteSuccess(c)
}

// List returns the caller's grants as owner: edge id plus viewer email.
func (h *ShareHandler) List(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	views, err := h.Shares.ListByOwner(ctx, user.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := make([]echo.Map, 0, len(views))
	for _, v := range views {
		resp = append(resp, echo.Map{"id": v.ID, "email": v.Email})
	}
	return c.JSON(http.StatusOK, resp)
}

// Revoke deletes a grant the caller owns. A foreign edge id reports the
// same 404 as a missing one.
func (h *ShareHandler) Revoke(c echo.Context) error {
	user := mw.CurrentUser(c)
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Shares.Delete(ctx, id, user.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete share failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// SharedWithMe lists the owners who granted the caller access. Emails
// only: the edge ids belong to the owners.
func (h *ShareHandler) SharedWithMe(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	emails, err := h.Shares.ListByViewer(ctx, user.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := make([]echo.Map, 0, len(emails))
	for _, e := range emails {
		resp = append(resp, echo.Map{"email": e})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSharedCalendar returns an owner's shift map and labels, read-only,
// provided the owner has shared with the caller.
func (h *ShareHandler) GetSharedCalendar(c echo.Context) error {
	user := mw.CurrentUser(c)
	ownerEmail := strings.ToLower(strings.TrimSpace(c.Param("ownerEmail")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner, err := h.Users.GetByEmail(ctx, ownerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return sharedCalendarNotFound(c)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	shared, err := h.Shares.Exists(ctx, owner.ID, user.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !shared {
		return sharedCalendarNotFound(c)
	}

	labels, err := h.Labels.ListByUser(ctx, owner.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	labelResps := make([]labelResp, 0, len(labels))
	for _, l := range labels {
		labelResps = append(labelResps, toLabelResp(l))
	}

	raw, err := h.Calendars.Get(ctx, owner.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"email":  owner.Email,
		"labels": labelResps,
		"shifts": decodeShiftMap(raw),
	})
}
