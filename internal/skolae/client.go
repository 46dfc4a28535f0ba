package skolae

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/config"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
)

const maxErrorBody = 512

// FetchObserver receives the outcome of every vendor round trip.
type FetchObserver interface {
	ObserveVendorFetch(service, endpoint string, status int, duration time.Duration)
}

// Client talks to the Kordis authentication and data hosts. It issues
// exactly one request per call and never retries.
type Client struct {
	authURL  string
	apiURL   string
	clientID string
	http     *http.Client
	observer FetchObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewClient builds a Kordis client from configuration.
func NewClient(cfg config.SkolaeConfig, observer FetchObserver, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		authURL:  cfg.AuthURL,
		apiURL:   cfg.APIURL,
		clientID: cfg.ClientID,
		http: &http.Client{
			Timeout: timeout,
			// The token is handed back in the Location header of the redirect.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Login exchanges credentials for an implicit-grant access token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Session, error) {
	query := url.Values{}
	query.Set("response_type", "token")
	query.Set("client_id", c.clientID)
	endpoint := c.authURL + "/oauth/authorize?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.SetBasicAuth(username, password)

	resp, err := c.do(req, "oauth_authorize")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, appErrors.ErrInvalidCredentials
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("login returned status %d without redirect", resp.StatusCode)
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse login redirect: %w", err)
	}
	fragment, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return nil, fmt.Errorf("parse login fragment: %w", err)
	}
	token := fragment.Get("access_token")
	if token == "" {
		return nil, errors.New("login redirect carries no access token")
	}

	sess := &models.Session{
		Service:     models.ServiceSkolae,
		AccessToken: token,
		TokenType:   fragment.Get("token_type"),
	}
	if secs, err := strconv.Atoi(fragment.Get("expires_in")); err == nil && secs > 0 {
		sess.ExpiresAt = c.now().Add(time.Duration(secs) * time.Second)
	}
	return sess, nil
}

// Years lists the school years the student has data for.
func (c *Client) Years(ctx context.Context, sess *models.Session) ([]RawYear, error) {
	var years []RawYear
	if err := c.get(ctx, sess, "years", "/me/years", nil, &years); err != nil {
		return nil, err
	}
	return years, nil
}

// Grades lists the subjects and marks of one school year.
func (c *Client) Grades(ctx context.Context, sess *models.Session, year int) ([]RawSubject, error) {
	var subjects []RawSubject
	path := fmt.Sprintf("/me/%d/grades", year)
	if err := c.get(ctx, sess, "grades", path, nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// Agenda lists the events between start and end.
func (c *Client) Agenda(ctx context.Context, sess *models.Session, start, end time.Time) ([]RawEvent, error) {
	query := url.Values{}
	query.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	query.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	var events []RawEvent
	if err := c.get(ctx, sess, "agenda", "/me/agenda", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, sess *models.Session, endpoint, path string, query url.Values, out interface{}) error {
	target := c.apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", sess.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return appErrors.Clone(appErrors.ErrInvalidSession, "Skolae rejected the access token")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, body)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s envelope: %w", endpoint, err)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveVendorFetch(string(models.ServiceSkolae), endpoint, status, time.Since(start))
	}
	if err != nil {
		c.logger.Warn("Skolae request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	return resp, nil
}
