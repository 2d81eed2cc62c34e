package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/shift-calendar/internal/model"
)

// LabelRepo is strictly owner-scoped: every query that touches a single
// label filters by (id, user_id), so a caller can never read or mutate
// another user's label, and a foreign id is indistinguishable from a
// missing one.
type LabelRepo struct{ DB *sql.DB }

func NewLabelRepo(db *sql.DB) *LabelRepo { return &LabelRepo{DB: db} }

// ListByUser returns all labels belonging to a user.
func (r *LabelRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Label, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,short_code,name,color FROM labels WHERE user_id=? ORDER BY name",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.UserID, &l.ShortCode, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Get fetches a single label owned by userID.
func (r *LabelRepo) Get(ctx context.Context, id string, userID uint64) (model.Label, error) {
	var l model.Label
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,short_code,name,color FROM labels WHERE id=? AND user_id=? LIMIT 1",
		id, userID).Scan(&l.ID, &l.UserID, &l.ShortCode, &l.Name, &l.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Label{}, ErrNotFound
	}
	return l, err
}

// Create inserts a new label.
func (r *LabelRepo) Create(ctx context.Context, l model.Label) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO labels (id, user_id, short_code, name, color) VALUES (?,?,?,?,?)",
		l.ID, l.UserID, l.ShortCode, l.Name, l.Color)
	return err
}

// Update rewrites a label's fields, keyed by (id, user_id). Callers
// resolve the label with Get first, so a zero affected-row count here
// (MySQL reports 0 for a no-change update) is not treated as missing.
func (r *LabelRepo) Update(ctx context.Context, l model.Label) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE labels SET short_code=?, name=?, color=? WHERE id=? AND user_id=?",
		l.ShortCode, l.Name, l.Color, l.ID, l.UserID)
	return err
}

// Delete removes a label owned by userID. Deleting a missing or foreign
// id reports ErrNotFound, never a silent success.
func (r *LabelRepo) Delete(ctx context.Context, id string, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM labels WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
