package repository

import (
	"context"
	"database/sql"
	"errors"
)

// CalendarRepo stores one serialized shift map per user. Save is a full
// replace through a single upsert statement, which keeps interleaved
// writes last-write-wins without ever exposing a half-written value.
type CalendarRepo struct{ DB *sql.DB }

func NewCalendarRepo(db *sql.DB) *CalendarRepo { return &CalendarRepo{DB: db} }

// Get returns the raw serialized shift map, ErrNotFound if no row exists.
func (r *CalendarRepo) Get(ctx context.Context, userID uint64) (string, error) {
	var shifts string
	err := r.DB.QueryRowContext(ctx,
		"SELECT shifts FROM calendars WHERE user_id=? LIMIT 1", userID).Scan(&shifts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return shifts, err
}

// Save replaces the user's entire shift map.
func (r *CalendarRepo) Save(ctx context.Context, userID uint64, shifts string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO calendars (user_id, shifts) VALUES (?,?)
		 ON DUPLICATE KEY UPDATE shifts=VALUES(shifts)`,
		userID, shifts)
	return err
}
