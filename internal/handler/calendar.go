package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	mw "github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CalendarHandler serves the per-user shift map. The map is one value:
// GET returns it whole, PUT replaces it whole. There is no merge.
type CalendarHandler struct {
	Calendars CalendarStore
}

func NewCalendarHandler(c CalendarStore) *CalendarHandler { return &CalendarHandler{Calendars: c} }

// Get returns the caller's current shift map. A missing row or a
// malformed stored blob both degrade to an empty map.
func (h *CalendarHandler) Get(c echo.Context) error {
	user := mw.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw, err := h.Calendars.Get(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, model.ShiftMap{})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, decodeShiftMap(raw))
}

// Put replaces the caller's entire shift map with the request body.
// Dates absent from the body are gone afterwards; callers must always
// send the full map.
func (h *CalendarHandler) Put(c echo.Context) error {
	user := mw.CurrentUser(c)

	var shifts model.ShiftMap
	if err := c.Bind(&shifts); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if shifts == nil {
		shifts = model.ShiftMap{}
	}
	for date := range shifts {
		if !datePattern.MatchString(date) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date keys must be YYYY-MM-DD"})
		}
	}

	raw, err := json.Marshal(shifts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Calendars.Save(ctx, user.UserID, string(raw)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, shifts)
}

// decodeShiftMap tolerates a corrupted stored blob by returning an
// empty map; a dangling label reference inside a valid blob is the
// consumer's problem (rendered as unlabeled), not ours.
func decodeShiftMap(raw string) model.ShiftMap {
	shifts := model.ShiftMap{}
	if raw == "" {
		return shifts
	}
	if err := json.Unmarshal([]byte(raw), &shifts); err != nil {
		return model.ShiftMap{}
	}
	return shifts
}
