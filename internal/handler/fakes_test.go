package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-calendar/internal/google"
	mw "github.com/iliyamo/shift-calendar/internal/middleware"
	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
)

// ----- request helpers -----

func newTestContext(t *testing.T, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func asUser(c echo.Context, id uint64, email string) {
	mw.SetCurrentUser(c, &mw.Identity{UserID: id, Email: email})
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var l []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	return l
}

// ----- store fakes -----
//
// Plain map-backed implementations of the store interfaces, mirroring
// the repository error contracts (ErrNotFound, ErrEmailExists). Mutexed
// where fire-and-forget goroutines may still be running at assert time.

type fakeUsers struct {
	mu    sync.Mutex
	seq   uint64
	users map[uint64]model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uint64]model.User{}}
}

func (f *fakeUsers) add(email string, hash string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	u := model.User{ID: f.seq, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) Create(ctx context.Context, email, passwordHash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	f.seq++
	f.users[f.seq] = model.User{ID: f.seq, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	return f.seq, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeOTCs struct {
	mu      sync.Mutex
	pending map[string]model.OTC
}

func newFakeOTCs() *fakeOTCs { return &fakeOTCs{pending: map[string]model.OTC{}} }

func (f *fakeOTCs) Store(ctx context.Context, email, code, passwordHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[email] = model.OTC{Email: email, Code: code, PasswordHash: passwordHash, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeOTCs) Get(ctx context.Context, email string) (model.OTC, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.pending[email]
	if !ok {
		return model.OTC{}, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeOTCs) Delete(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, email)
	return nil
}

type fakeLabels struct {
	mu     sync.Mutex
	labels map[string]model.Label
}

func newFakeLabels() *fakeLabels { return &fakeLabels{labels: map[string]model.Label{}} }

func (f *fakeLabels) ListByUser(ctx context.Context, userID uint64) ([]model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Label
	for _, l := range f.labels {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortCode < out[j].ShortCode })
	return out, nil
}

func (f *fakeLabels) Get(ctx context.Context, id string, userID uint64) (model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.labels[id]
	if !ok || l.UserID != userID {
		return model.Label{}, repository.ErrNotFound
	}
	return l, nil
}

func (f *fakeLabels) Create(ctx context.Context, l model.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[l.ID] = l
	return nil
}

func (f *fakeLabels) Update(ctx context.Context, l model.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.labels[l.ID]
	if !ok || cur.UserID != l.UserID {
		return repository.ErrNotFound
	}
	f.labels[l.ID] = l
	return nil
}

func (f *fakeLabels) Delete(ctx context.Context, id string, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.labels[id]
	if !ok || l.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.labels, id)
	return nil
}

type fakeCalendars struct {
	mu    sync.Mutex
	blobs map[uint64]string
}

func newFakeCalendars() *fakeCalendars { return &fakeCalendars{blobs: map[uint64]string{}} }

func (f *fakeCalendars) Get(ctx context.Context, userID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.blobs[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return raw, nil
}

func (f *fakeCalendars) Save(ctx context.Context, userID uint64, shifts string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[userID] = shifts
	return nil
}

type fakeShares struct {
	mu     sync.Mutex
	users  *fakeUsers
	shares map[string]model.Share
}

func newFakeShares(users *fakeUsers) *fakeShares {
	return &fakeShares{users: users, shares: map[string]model.Share{}}
}

func (f *fakeShares) Create(ctx context.Context, s model.Share) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shares[s.ID] = s
	return nil
}

func (f *fakeShares) Exists(ctx context.Context, ownerID, viewerID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shares {
		if s.OwnerID == ownerID && s.SharedWithID == viewerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeShares) Delete(ctx context.Context, id string, ownerID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shares[id]
	if !ok || s.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.shares, id)
	return nil
}

func (f *fakeShares) ListByOwner(ctx context.Context, ownerID uint64) ([]repository.ShareView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.ShareView
	for _, s := range f.shares {
		if s.OwnerID != ownerID {
			continue
		}
		u, err := f.users.GetByID(ctx, s.SharedWithID)
		if err != nil {
			continue
		}
		out = append(out, repository.ShareView{ID: s.ID, Email: u.Email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeShares) ListByViewer(ctx context.Context, viewerID uint64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.shares {
		if s.SharedWithID != viewerID {
			continue
		}
		u, err := f.users.GetByID(ctx, s.OwnerID)
		if err != nil {
			continue
		}
		out = append(out, u.Email)
	}
	sort.Strings(out)
	return out, nil
}

type fakeStates struct {
	mu     sync.Mutex
	states map[string]model.OAuthState
}

func newFakeStates() *fakeStates { return &fakeStates{states: map[string]model.OAuthState{}} }

func (f *fakeStates) Create(ctx context.Context, state string, userID uint64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = model.OAuthState{State: state, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeStates) Get(ctx context.Context, state string) (model.OAuthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[state]
	if !ok {
		return model.OAuthState{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeStates) Delete(ctx context.Context, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, state)
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[uint64]model.GoogleToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{tokens: map[uint64]model.GoogleToken{}} }

func (f *fakeTokens) Get(ctx context.Context, userID uint64) (model.GoogleToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[userID]
	if !ok {
		return model.GoogleToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) Upsert(ctx context.Context, t model.GoogleToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.tokens[t.UserID]; ok {
		// Reconnecting keeps the visibility choice, as the production
		// upsert does.
		t.Visible = cur.Visible
	}
	f.tokens[t.UserID] = t
	return nil
}

func (f *fakeTokens) UpdateAccess(ctx context.Context, userID uint64, accessToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[userID]
	if !ok {
		return repository.ErrNotFound
	}
	t.AccessToken = accessToken
	t.ExpiresAt = expiresAt
	f.tokens[userID] = t
	return nil
}

func (f *fakeTokens) SetVisible(ctx context.Context, userID uint64, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[userID]
	if !ok {
		return repository.ErrNotFound
	}
	t.Visible = visible
	f.tokens[userID] = t
	return nil
}

func (f *fakeTokens) Delete(ctx context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, userID)
	return nil
}

// ----- outbound fakes -----

type sentMail struct {
	From, To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, from, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{From: from, To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeGoogle scripts the provider surface. Each outbound call can be
// replaced per test; unset calls return zero values.
type fakeGoogle struct {
	mu         sync.Mutex
	configured bool
	exchange   func(code string) (*google.TokenResponse, error)
	refresh    func(refreshToken string) (*google.TokenResponse, error)
	events     func(accessToken string) ([]google.Event, error)
	revokeErr  error
	revoked    []string
}

func (f *fakeGoogle) Configured() bool { return f.configured }

func (f *fakeGoogle) BuildAuthURL(state string) (string, error) {
	return "https://accounts.example.com/auth?state=" + state, nil
}

func (f *fakeGoogle) ExchangeCode(ctx context.Context, code string) (*google.TokenResponse, error) {
	if f.exchange == nil {
		return &google.TokenResponse{}, nil
	}
	return f.exchange(code)
}

func (f *fakeGoogle) Refresh(ctx context.Context, refreshToken string) (*google.TokenResponse, error) {
	if f.refresh == nil {
		return &google.TokenResponse{}, nil
	}
	return f.refresh(refreshToken)
}

func (f *fakeGoogle) Revoke(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeGoogle) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func (f *fakeGoogle) FetchAllEvents(ctx context.Context, accessToken string, timeMin, timeMax time.Time) ([]google.Event, error) {
	if f.events == nil {
		return []google.Event{}, nil
	}
	return f.events(accessToken)
}

var _ GoogleClient = (*fakeGoogle)(nil)
