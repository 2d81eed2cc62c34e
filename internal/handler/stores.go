// Package handler implements the HTTP endpoints. Handlers depend on
// small store interfaces rather than concrete repositories, so tests
// can exercise every status-code path with in-memory fakes; the
// production wiring in cmd/server satisfies them with the repository
// types.
package handler

import (
	"context"
	"time"

	"github.com/iliyamo/shift-calendar/internal/google"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
)

// UserStore provides user rows. Lookups return repository.ErrNotFound
// when no row matches.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// OTCStore manages pending registrations (one per email, upserted).
type OTCStore interface {
	Store(ctx context.Context, email, code, passwordHash string, expiresAt time.Time) error
	Get(ctx context.Context, email string) (model.OTC, error)
	Delete(ctx context.Context, email string) error
}

// LabelStore provides owner-scoped label CRUD.
type LabelStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Label, error)
	Get(ctx context.Context, id string, userID uint64) (model.Label, error)
	Create(ctx context.Context, l model.Label) error
	Update(ctx context.Context, l model.Label) error
	Delete(ctx context.Context, id string, userID uint64) error
}

// CalendarStore stores one serialized shift map per user.
type CalendarStore interface {
	Get(ctx context.Context, userID uint64) (string, error)
	Save(ctx context.Context, userID uint64, shifts string) error
}

// ShareStore manages directed owner→viewer read grants.
type ShareStore interface {
	Create(ctx context.Context, s model.Share) error
	Exists(ctx context.Context, ownerID, viewerID uint64) (bool, error)
	Delete(ctx context.Context, id string, ownerID uint64) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]repository.ShareView, error)
	ListByViewer(ctx context.Context, viewerID uint64) ([]string, error)
}

// OAuthStateStore manages single-use CSRF states.
type OAuthStateStore interface {
	Create(ctx context.Context, state string, userID uint64, expiresAt time.Time) error
	Get(ctx context.Context, state string) (model.OAuthState, error)
	Delete(ctx context.Context, state string) error
}

// GoogleTokenStore stores one provider credential row per user.
type GoogleTokenStore interface {
	Get(ctx context.Context, userID uint64) (model.GoogleToken, error)
	Upsert(ctx context.Context, t model.GoogleToken) error
	UpdateAccess(ctx context.Context, userID uint64, accessToken string, expiresAt time.Time) error
	SetVisible(ctx context.Context, userID uint64, visible bool) error
	Delete(ctx context.Context, userID uint64) error
}

// GoogleClient is the outbound provider surface the google handler
// needs; internal/google.Client is the production implementation.
type GoogleClient interface {
	Configured() bool
	BuildAuthURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*google.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*google.TokenResponse, error)
	Revoke(ctx context.Context, token string) error
	FetchAllEvents(ctx context.Context, accessToken string, timeMin, timeMax time.Time) ([]google.Event, error)
}
