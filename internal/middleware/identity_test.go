package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-calendar/internal/model"
	"github.com/iliyamo/shift-calendar/internal/repository"
	"github.com/iliyamo/shift-calendar/internal/utils"
)

const testSecret = "test-secret"

type stubUsers map[uint64]model.User

func (s stubUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := s[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// capture runs a request through DeriveIdentity and returns whatever
// identity the inner handler observed.
func capture(t *testing.T, users UserLookup, cookie *http.Cookie) *Identity {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen *Identity
	h := DeriveIdentity(testSecret, users)(func(c echo.Context) error {
		seen = CurrentUser(c)
		return nil
	})
	require.NoError(t, h(c))
	return seen
}

func sessionCookie(t *testing.T, secret string, userID uint64, email string) *http.Cookie {
	t.Helper()
	token, _, err := utils.NewSessionToken(secret, userID, email)
	require.NoError(t, err)
	return &http.Cookie{Name: utils.SessionCookie, Value: token}
}

func TestDeriveIdentityResolvesUser(t *testing.T) {
	users := stubUsers{7: {ID: 7, Email: "nina@example.com"}}

	id := capture(t, users, sessionCookie(t, testSecret, 7, "nina@example.com"))
	require.NotNil(t, id)
	require.Equal(t, uint64(7), id.UserID)
	require.Equal(t, "nina@example.com", id.Email)
}

func TestDeriveIdentityAnonymousCases(t *testing.T) {
	users := stubUsers{7: {ID: 7, Email: "nina@example.com"}}

	cases := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"empty value", &http.Cookie{Name: utils.SessionCookie, Value: ""}},
		{"garbage token", &http.Cookie{Name: utils.SessionCookie, Value: "not.a.jwt"}},
		{"wrong secret", sessionCookie(t, "other-secret", 7, "nina@example.com")},
		{"deleted user", sessionCookie(t, testSecret, 99, "ghost@example.com")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Nil(t, capture(t, users, tc.cookie))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	h := RequireAuth()(next)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, h(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	SetCurrentUser(c, &Identity{UserID: 7, Email: "nina@example.com"})
	require.NoError(t, h(c))
	require.Equal(t, http.StatusOK, rec.Code)
}
