package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/config"
	mw "github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
	"github.com/iliyamo/shift-calendar/internal/service"
	"github.com/iliyamo/shift-calendar/internal/utils"
)

// otcTTL is how long a verification code stays valid.
const otcTTL = 10 * time.Minute

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthHandler bundles dependencies for the registration, login and
// session endpoints. Registration is two-phase: initiate stores a
// pending code, verify creates the account and seeds its defaults.
type AuthHandler struct {
	Cfg       config.Config
	Users     UserStore
	OTCs      OTCStore
	Labels    LabelStore
	Calendars CalendarStore
	Mailer    service.Mailer
}

func NewAuthHandler(cfg config.Config, u UserStore, o OTCStore, l LabelStore, c CalendarStore, m service.Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, OTCs: o, Labels: l, Calendars: c, Mailer: m}
}

// ----- DTOs -----

type initiateReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInitiate: hash the password, store a pending code, dispatch it
// out of band. The account row is not created yet.
func (h *AuthHandler) RegisterInitiate(c echo.Context) error {
	var req initiateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Checked again at verify time; this early check just avoids the
	// hashing cost for the common case.
	if _, err := h.Users.GetByEmail(ctx, email); err == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	code, err := utils.GenerateOTC()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "code generation failed"})
	}
	if err := h.OTCs.Store(ctx, email, code, hash, time.Now().Add(otcTTL)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store code failed"})
	}

	log.Printf("[otc] registration code issued for %s", utils.MaskEmail(email))
	from, mailer := h.Cfg.MailFrom, h.Mailer
	service.FireAndForget("otc-email", func(ctx context.Context) error {
		return mailer.Send(ctx, from, email, "Your verification code",
			fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "verification code sent"})
}

// RegisterVerify: check the code, create the account, seed the three
// default labels and an empty calendar, and issue a session.
func (h *AuthHandler) RegisterVerify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || len(code) != 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and 6-digit code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	otc, err := h.OTCs.Get(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no pending registration found, please start over"})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if time.Now().After(otc.ExpiresAt) {
		_ = h.OTCs.Delete(ctx, email)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification code expired, please start over"})
	}
	// A wrong code leaves the pending registration intact for retries.
	if otc.Code != code {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification code"})
	}

	// Re-check for a concurrent registration that landed between
	// initiate and verify.
	if _, err := h.Users.GetByEmail(ctx, email); err == nil {
		_ = h.OTCs.Delete(ctx, email)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	userID, err := h.Users.Create(ctx, email, otc.PasswordHash)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			_ = h.OTCs.Delete(ctx, email)
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	_ = h.OTCs.Delete(ctx, email)

	for _, d := range model.DefaultLabels {
		l := model.Label{ID: uuid.NewString(), UserID: userID, ShortCode: d.ShortCode, Name: d.Name, Color: d.Color}
		if err := h.Labels.Create(ctx, l); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "seed labels failed"})
		}
	}
	if err := h.Calendars.Save(ctx, userID, "{}"); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "init calendar failed"})
	}

	if err := h.issueSession(c, userID, email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "email": email})
}

// Login: identical error for unknown email and wrong password, so
// nothing about account existence leaks.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}

	if err := h.issueSession(c, u.ID, u.Email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "email": u.Email})
}

// Logout clears the session cookie. Always succeeds; already-issued
// tokens elsewhere stay valid until their expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.Env == "prod",
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me reports the current identity without requiring one.
func (h *AuthHandler) Me(c echo.Context) error {
	id := mw.CurrentUser(c)
	if id == nil {
		return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"authenticated": true, "email": id.Email})
}

func (h *AuthHandler) issueSession(c echo.Context, userID uint64, email string) error {
	token, _, err := utils.NewSessionToken(h.Cfg.JWTSecret, userID, email)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(utils.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.Env == "prod",
	})
	return nil
}
