package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/shift-calendar/internal/model"
)

// ShareView is what an owner sees when listing their grants: the edge
// id (needed to revoke) and the viewer's email.
type ShareView struct {
	ID    string
	Email string
}

// ShareRepo stores directed owner→viewer read grants. Duplicate edges
// are prevented by the application-level Exists check, not a schema
// constraint.
type ShareRepo struct{ DB *sql.DB }

func NewShareRepo(db *sql.DB) *ShareRepo { return &ShareRepo{DB: db} }

// Create inserts a new share edge.
func (r *ShareRepo) Create(ctx context.Context, s model.Share) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO shares (id, owner_id, shared_with_id) VALUES (?,?,?)",
		s.ID, s.OwnerID, s.SharedWithID)
	return err
}

// Exists reports whether an owner→viewer edge already exists.
func (r *ShareRepo) Exists(ctx context.Context, ownerID, viewerID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM shares WHERE owner_id=? AND shared_with_id=?",
		ownerID, viewerID).Scan(&n)
	return n > 0, err
}

// Delete removes an edge only when it belongs to ownerID. A foreign or
// missing id reports ErrNotFound; the two are indistinguishable.
func (r *ShareRepo) Delete(ctx context.Context, id string, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM shares WHERE id=? AND owner_id=?", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ListByOwner returns the edges granted by an owner with each viewer's
// email.
func (r *ShareRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]ShareView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT s.id, u.email FROM shares s
		 JOIN users u ON u.id = s.shared_with_id
		 WHERE s.owner_id=? ORDER BY u.email`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []ShareView
	for rows.Next() {
		var v ShareView
		if err := rows.Scan(&v.ID, &v.Email); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListByViewer returns the emails of owners who granted the viewer
// access. Only the email: the edge id is the owner's to manage.
func (r *ShareRepo) ListByViewer(ctx context.Context, viewerID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT u.email FROM shares s
		 JOIN users u ON u.id = s.owner_id
		 WHERE s.shared_with_id=? ORDER BY u.email`, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
