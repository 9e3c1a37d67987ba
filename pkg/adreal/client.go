// Package adreal provides a client for the Gemius AdReal statistics API.
//
// The API uses Django-style session authentication: a GET of the login
// page yields a csrftoken cookie, and a POST of the credentials plus that
// token yields a session cookie honored by all subsequent calls. Each
// Client owns a private cookie jar; clients are not shared across
// fetch contexts.
package adreal

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://adreal.gemius.com/api"

	// bodySnippetLen bounds how much of an error response body is kept
	// for logs and error messages.
	bodySnippetLen = 2000
)

// Client is an authenticated AdReal API session for one market.
type Client struct {
	baseURL     string
	market      string
	username    string
	password    string
	http        *http.Client
	limiter     *rate.Limiter
	pageTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client. The client's jar is
// replaced with a fresh one so login state stays private to this Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithTimeout sets the per-request timeout for catalog pages. Stats
// requests use their own longer timeout (see FetchStats).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.pageTimeout = d }
}

// NewClient creates an unauthenticated client. Call Login before any fetch.
func NewClient(username, password, market string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:  DefaultBaseURL,
		market:   market,
		username: username,
		password: password,
		http: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(5, 5),
		pageTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c.http.Jar = jar
	}
	return c
}

// loginURL is the login endpoint; the next parameter matches what the web
// UI sends and is required for the session cookie to be issued.
func (c *Client) loginURL() string {
	return c.baseURL + "/login/?next=/api/"
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + c.market + "/" + strings.Trim(path, "/") + "/"
}

// Login performs the CSRF handshake and establishes the session.
func (c *Client) Login(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "adreal: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.loginURL(), nil)
	if err != nil {
		return eris.Wrap(err, "adreal: create login page request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "adreal: get login page")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	token := c.csrfToken()
	if token == "" {
		return eris.New("adreal: no csrftoken cookie after login page")
	}

	form := url.Values{
		"username":            {c.username},
		"password":            {c.password},
		"csrfmiddlewaretoken": {token},
	}
	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "adreal: create login request")
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postReq.Header.Set("Referer", c.endpoint("stats"))
	postReq.Header.Set("X-CSRFToken", token)

	postResp, err := c.http.Do(postReq)
	if err != nil {
		return eris.Wrap(err, "adreal: post login")
	}
	body, _ := io.ReadAll(io.LimitReader(postResp.Body, bodySnippetLen))
	_ = postResp.Body.Close()

	if postResp.StatusCode >= 400 {
		return eris.Wrap(&HTTPError{StatusCode: postResp.StatusCode, URL: c.loginURL(), Body: string(body)}, "adreal: login")
	}
	// The login endpoint answers 200 with an error page on bad credentials.
	if strings.Contains(strings.ToLower(string(body)), "invalid") {
		return &AuthError{Username: c.username}
	}

	zap.L().Debug("adreal login successful", zap.String("market", c.market), zap.String("username", c.username))
	return nil
}

// csrfToken returns the current csrftoken cookie value, if any.
func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "csrftoken" {
			return ck.Value
		}
	}
	return ""
}

// get issues an authenticated GET and returns the response body. Non-2xx
// statuses become *HTTPError; a 403 whose body signals a permission
// denial becomes *PermissionError.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "adreal: rate limiter wait")
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "adreal: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "adreal: GET %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "adreal: read body from %s", rawURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > bodySnippetLen {
			snippet = snippet[:bodySnippetLen]
		}
		if resp.StatusCode == http.StatusForbidden && isPermissionBody(snippet) {
			return nil, &PermissionError{URL: rawURL, Body: string(snippet)}
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(snippet)}
	}

	return body, nil
}

// isPermissionBody reports whether a 403 body carries explicit
// "no permission" semantics, as opposed to an expired session.
func isPermissionBody(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "no permission") || strings.Contains(lower, "not permitted")
}
