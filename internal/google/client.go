// Package google is the outbound client for the Google OAuth2 and
// Calendar endpoints: building the authorization URL, exchanging and
// refreshing tokens, revocation, and the read-only event fan-out across
// a user's calendars. Endpoint URLs are fields so tests can point the
// client at local servers.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	defaultRevokeURL = "https://oauth2.googleapis.com/revoke"
	defaultAPIBase   = "https://www.googleapis.com/calendar/v3"

	// Scope is read-only: the service never writes to the provider.
	calendarScope = "https://www.googleapis.com/auth/calendar.readonly"

	// Per-calendar cap. A bounded result, not a full sync: there is no
	// further pagination past the first page.
	maxEventsPerCalendar = 250
)

// ErrNotConfigured is returned when required operator configuration
// (client id / redirect URI) is absent.
var ErrNotConfigured = errors.New("google oauth not configured")

// TokenResponse mirrors the provider's token endpoint payload for both
// the authorization-code and refresh grants. RefreshToken is empty on
// refresh responses and may be empty on exchanges when consent was not
// re-prompted.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// Event is one calendar event in the shape the UI consumes, tagged with
// its source calendar's display name and color.
type Event struct {
	ID           string `json:"id"`
	Summary      string `json:"summary"`
	Start        string `json:"start"`
	End          string `json:"end"`
	IsAllDay     bool   `json:"isAllDay"`
	CalendarName string `json:"calendarName"`
	Color        string `json:"color"`
}

// Client talks to the provider. The zero value is not usable; build it
// with New.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthURL   string
	TokenURL  string
	RevokeURL string
	APIBase   string

	HTTP *http.Client
}

// New builds a client with the production endpoints.
func New(clientID, clientSecret, redirectURI string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		AuthURL:      defaultAuthURL,
		TokenURL:     defaultTokenURL,
		RevokeURL:    defaultRevokeURL,
		APIBase:      defaultAPIBase,
		HTTP:         &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether the static operator configuration needed
// to begin an authorization flow is present.
func (c *Client) Configured() bool {
	return c.ClientID != "" && c.RedirectURI != ""
}

// BuildAuthURL returns the provider authorization URL embedding the
// given CSRF state. Offline access and forced re-consent guarantee a
// refresh token is issued even on reauthorization.
func (c *Client) BuildAuthURL(state string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	q := url.Values{
		"client_id":     {c.ClientID},
		"redirect_uri":  {c.RedirectURI},
		"response_type": {"code"},
		"scope":         {calendarScope},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return c.AuthURL + "?" + q.Encode(), nil
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if !c.Configured() || c.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	return c.tokenRequest(ctx, url.Values{
		"code":          {code},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"redirect_uri":  {c.RedirectURI},
		"grant_type":    {"authorization_code"},
	})
}

// Refresh mints a new access token from a stored refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	return c.tokenRequest(ctx, url.Values{
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	})
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d", res.StatusCode)
	}

	var tr TokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// Revoke invalidates a token (revoking a refresh token also invalidates
// its access tokens). Callers treat failures as best-effort.
func (c *Client) Revoke(ctx context.Context, token string) error {
	u := c.RevokeURL + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke endpoint returned %d", res.StatusCode)
	}
	return nil
}

type calendarListResponse struct {
	Items []struct {
		ID              string `json:"id"`
		Summary         string `json:"summary"`
		BackgroundColor string `json:"backgroundColor"`
	} `json:"items"`
}

type eventsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
		Start   struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"end"`
	} `json:"items"`
}

// FetchAllEvents lists the user's calendars and fetches events from
// each one concurrently within [timeMin, timeMax), flattening results
// into a single list. A failure listing calendars is an error; a
// failure on an individual calendar contributes zero events instead of
// failing the whole request. Recurring events are expanded to single
// instances ordered by start time.
func (c *Client) FetchAllEvents(ctx context.Context, accessToken string, timeMin, timeMax time.Time) ([]Event, error) {
	var list calendarListResponse
	if err := c.getJSON(ctx, accessToken, c.APIBase+"/users/me/calendarList", &list); err != nil {
		return nil, err
	}

	// One fetch per calendar; the calendar count is the natural bound
	// on concurrency given the 90-day/250-event caps upstream.
	perCal := make([][]Event, len(list.Items))
	var wg sync.WaitGroup
	for i, cal := range list.Items {
		wg.Add(1)
		go func(i int, id, name, color string) {
			defer wg.Done()
			perCal[i] = c.fetchCalendarEvents(ctx, accessToken, id, name, color, timeMin, timeMax)
		}(i, cal.ID, cal.Summary, cal.BackgroundColor)
	}
	wg.Wait()

	events := make([]Event, 0)
	for _, evs := range perCal {
		events = append(events, evs...)
	}
	return events, nil
}

// fetchCalendarEvents returns the events of one calendar, or nil when
// the fetch fails.
func (c *Client) fetchCalendarEvents(ctx context.Context, accessToken, calID, calName, calColor string, timeMin, timeMax time.Time) []Event {
	q := url.Values{
		"timeMin":      {timeMin.UTC().Format(time.RFC3339)},
		"timeMax":      {timeMax.UTC().Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {fmt.Sprintf("%d", maxEventsPerCalendar)},
	}
	u := c.APIBase + "/calendars/" + url.PathEscape(calID) + "/events?" + q.Encode()

	var resp eventsResponse
	if err := c.getJSON(ctx, accessToken, u, &resp); err != nil {
		return nil
	}

	if calColor == "" {
		calColor = "#f59e0b"
	}
	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		summary := item.Summary
		if summary == "" {
			summary = "(No title)"
		}
		start := item.Start.DateTime
		if start == "" {
			start = item.Start.Date
		}
		end := item.End.DateTime
		if end == "" {
			end = item.End.Date
		}
		events = append(events, Event{
			ID:           item.ID,
			Summary:      summary,
			Start:        start,
			End:          end,
			IsAllDay:     item.Start.DateTime == "",
			CalendarName: calName,
			Color:        calColor,
		})
	}
	return events
}

func (c *Client) getJSON(ctx context.Context, accessToken, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("google api returned %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
