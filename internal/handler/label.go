package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	mw "github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LabelHandler serves the owner-scoped label CRUD endpoints.
type LabelHandler struct {
	Labels LabelStore
}

func NewLabelHandler(l LabelStore) *LabelHandler { return &LabelHandler{Labels: l} }

type labelResp struct {
	ID        string `json:"id"`
	ShortCode string `json:"shortCode"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

type createLabelReq struct {
	ShortCode string `json:"shortCode"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

// updateLabelReq uses pointers so unspecified fields keep their prior
// values.
type updateLabelReq struct {
	ShortCode *string `json:"shortCode"`
	Name      *string `json:"name"`
	Color     *string `json:"color"`
}

func toLabelResp(l model.Label) labelResp {
	return labelResp{ID: l.ID, ShortCode: l.ShortCode, Name: l.Name, Color: l.Color}
}

func validShortCode(s string) bool { return len(s) >= 1 && len(s) <= 4 }

// List returns all of the caller's labels.
func (h *LabelHandler) List(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	labels, err := h.Labels.ListByUser(ctx, user.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := make([]labelResp, 0, len(labels))
	for _, l := range labels {
		resp = append(resp, toLabelResp(l))
	}
	return c.JSON(http.StatusOK, resp)
}

// Create makes a new label with a fresh opaque id.
func (h *LabelHandler) Create(c echo.Context) error {
	user := mw.CurrentUser(c)

	var req createLabelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ShortCode = strings.TrimSpace(req.ShortCode)
	req.Name = strings.TrimSpace(req.Name)
	if !validShortCode(req.ShortCode) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "shortCode must be 1-4 characters"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if !colorPattern.MatchString(req.Color) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "color must match #rrggbb"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l := model.Label{
		ID:        uuid.NewString(),
		UserID:    user.UserID,
		ShortCode: req.ShortCode,
		Name:      req.Name,
		Color:     req.Color,
	}
	if err := h.Labels.Create(ctx, l); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create label failed"})
	}
	return c.JSON(http.StatusCreated, toLabelResp(l))
}

// Update accepts a partial field set; missing fields retain prior
// values. A foreign or unknown id reports 404.
func (h *LabelHandler) Update(c echo.Context) error {
	user := mw.CurrentUser(c)
	id := c.Param("id")

	var req updateLabelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Labels.Get(ctx, id, user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "label not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.ShortCode != nil {
		sc := strings.TrimSpace(*req.ShortCode)
		if !validShortCode(sc) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "shortCode must be 1-4 characters"})
		}
		l.ShortCode = sc
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
		}
		l.Name = name
	}
	if req.Color != nil {
		if !colorPattern.MatchString(*req.Color) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "color must match #rrggbb"})
		}
		l.Color = *req.Color
	}

	if err := h.Labels.Update(ctx, l); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update label failed"})
	}
	return c.JSON(http.StatusOK, toLabelResp(l))
}

// Delete removes a label. Deleting a missing or foreign id reports 404,
// never a silent success.
func (h *LabelHandler) Delete(c echo.Context) error {
	user := mw.CurrentUser(c)
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Labels.Delete(ctx, id, user.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "label not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete label failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
