package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shift-calendar/internal/model"
)

type shareFixture struct {
	h         *ShareHandler
	users     *fakeUsers
	shares    *fakeShares
	labels    *fakeLabels
	calendars *fakeCalendars
	mailer    *fakeMailer

	owner  model.User
	viewer model.User
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	f := &shareFixture{
		users:     newFakeUsers(),
		labels:    newFakeLabels(),
		calendars: newFakeCalendars(),
		mailer:    &fakeMailer{},
	}
	f.shares = newFakeShares(f.users)
	f.h = NewShareHandler(testConfig(), f.users, f.shares, f.labels, f.calendars, f.mailer)
	f.owner = f.users.add("owner@example.com", "hash")
	f.viewer = f.users.add("viewer@example.com", "hash")
	return f
}

func (f *shareFixture) invite(t *testing.T, callerID uint64, callerEmail, targetEmail string) string {
	t.Helper()
	c, rec := newTestContext(t, http.MethodPost, "/api/shares", map[string]string{"email": targetEmail})
	asUser(c, callerID, callerEmail)
	require.NoError(t, f.h.Invite(c))
	require.Equal(t, http.StatusOK, rec.Code, "invite body: %s", rec.Body.String())
	return rec.Body.String()
}

func TestInviteCreatesGrantAndNotifies(t *testing.T) {
	f := newShareFixture(t)

	f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")

	shared, err := f.shares.Exists(context.Background(), f.owner.ID, f.viewer.ID)
	require.NoError(t, err)
	require.True(t, shared)

	require.Eventually(t, func() bool { return f.mailer.count() == 1 }, time.Second, 5*time.Millisecond)
	mail := f.mailer.last()
	require.Equal(t, "viewer@example.com", mail.To)
	require.Contains(t, mail.Body, "owner@example.com")
}

func TestInviteOutcomesAreIndistinguishable(t *testing.T) {
	f := newShareFixture(t)

	// Unknown address, fresh grant and duplicate grant must all return
	// byte-identical bodies, or the endpoint becomes a user directory.
	unknown := f.invite(t, f.owner.ID, f.owner.Email, "nobody@example.com")
	created := f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")
	duplicate := f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")

	require.Equal(t, unknown, created)
	require.Equal(t, created, duplicate)

	// The duplicate did not add a second edge.
	views, err := f.shares.ListByOwner(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
}

func TestInviteRejectsSelfShare(t *testing.T) {
	f := newShareFixture(t)

	c, rec := newTestContext(t, http.MethodPost, "/api/shares", map[string]string{"email": "owner@example.com"})
	asUser(c, f.owner.ID, f.owner.Email)
	require.NoError(t, f.h.Invite(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "cannot share with yourself", decodeMap(t, rec)["error"])
}

func TestInviteRejectsInvalidEmail(t *testing.T) {
	f := newShareFixture(t)

	c, rec := newTestContext(t, http.MethodPost, "/api/shares", map[string]string{"email": "not-an-email"})
	asUser(c, f.owner.ID, f.owner.Email)
	require.NoError(t, f.h.Invite(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareListAndRevoke(t *testing.T) {
	f := newShareFixture(t)
	f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")

	c, rec := newTestContext(t, http.MethodGet, "/api/shares", nil)
	asUser(c, f.owner.ID, f.owner.Email)
	require.NoError(t, f.h.List(c))
	views := decodeList(t, rec)
	require.Len(t, views, 1)
	require.Equal(t, "viewer@example.com", views[0]["email"])
	edgeID := views[0]["id"].(string)

	c, rec = newTestContext(t, http.MethodDelete, "/api/shares/"+edgeID, nil)
	c.SetParamNames("id")
	c.SetParamValues(edgeID)
	asUser(c, f.owner.ID, f.owner.Email)
	require.NoError(t, f.h.Revoke(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Access is gone immediately.
	c, rec = newTestContext(t, http.MethodGet, "/api/shared-calendars/owner@example.com", nil)
	c.SetParamNames("ownerEmail")
	c.SetParamValues("owner@example.com")
	asUser(c, f.viewer.ID, f.viewer.Email)
	require.NoError(t, f.h.GetSharedCalendar(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevokeForeignEdgeIs404(t *testing.T) {
	f := newShareFixture(t)
	f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")

	views, err := f.shares.ListByOwner(context.Background(), f.owner.ID)
	require.NoError(t, err)
	edgeID := views[0].ID

	// The viewer knows the edge id but does not own it.
	c, rec := newTestContext(t, http.MethodDelete, "/api/shares/"+edgeID, nil)
	c.SetParamNames("id")
	c.SetParamValues(edgeID)
	asUser(c, f.viewer.ID, f.viewer.Email)
	require.NoError(t, f.h.Revoke(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	shared, err := f.shares.Exists(context.Background(), f.owner.ID, f.viewer.ID)
	require.NoError(t, err)
	require.True(t, shared, "grant must survive a foreign revoke attempt")
}

func TestSharedWithMe(t *testing.T) {
	f := newShareFixture(t)
	f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")

	c, rec := newTestContext(t, http.MethodGet, "/api/shared-calendars", nil)
	asUser(c, f.viewer.ID, f.viewer.Email)
	require.NoError(t, f.h.SharedWithMe(c))
	owners := decodeList(t, rec)
	require.Len(t, owners, 1)
	require.Equal(t, "owner@example.com", owners[0]["email"])
	// Edge ids belong to the owner; viewers never see them.
	_, leaked := owners[0]["id"]
	require.False(t, leaked)
}

func TestGetSharedCalendar(t *testing.T) {
	f := newShareFixture(t)
	seedLabel(t, f.labels, f.owner.ID, "E", "Early Shift", "#22c55e")
	require.NoError(t, f.calendars.Save(context.Background(), f.owner.ID, `{"2026-03-01":"label-e"}`))
	f.invite(t, f.owner.ID, f.owner.Email, "viewer@example.com")

	c, rec := newTestContext(t, http.MethodGet, "/api/shared-calendars/owner@example.com", nil)
	c.SetParamNames("ownerEmail")
	c.SetParamValues("Owner@Example.com")
	asUser(c, f.viewer.ID, f.viewer.Email)
	require.NoError(t, f.h.GetSharedCalendar(c))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeMap(t, rec)
	require.Equal(t, "owner@example.com", resp["email"])
	require.Len(t, resp["labels"], 1)
	require.Equal(t, map[string]any{"2026-03-01": "label-e"}, resp["shifts"])
}

func TestGetSharedCalendarMasksOwnerExistence(t *testing.T) {
	f := newShareFixture(t)
	// owner exists but never shared with the caller; ghost does not
	// exist at all. Both must produce the same 404.
	fetch := func(email string) string {
		c, rec := newTestContext(t, http.MethodGet, "/api/shared-calendars/"+email, nil)
		c.SetParamNames("ownerEmail")
		c.SetParamValues(email)
		asUser(c, f.viewer.ID, f.viewer.Email)
		require.NoError(t, f.h.GetSharedCalendar(c))
		require.Equal(t, http.StatusNotFound, rec.Code)
		return rec.Body.String()
	}

	unshared := fetch("owner@example.com")
	unknown := fetch("ghost@example.com")
	require.Equal(t, unshared, unknown)
}
