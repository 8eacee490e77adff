package rest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Defaults for controller API communication.
const (
	// defaultPort is the controller's HTTPS API port.
	defaultPort = 443

	// defaultTimeout bounds each HTTP call.
	defaultTimeout = 10 * time.Second

	// refreshMargin is how long before expiry a cached token stops being
	// trusted. The controller invalidates sessions on its own schedule;
	// the margin absorbs clock skew and in-flight time.
	refreshMargin = 60 * time.Second

	// loginPath is the only endpoint that does not carry a bearer token.
	loginPath = "/base/auth/login"

	// bodySnippetLimit caps how much response body a StatusError carries.
	bodySnippetLimit = 256
)

// Config holds connection parameters for the structured API.
type Config struct {
	// Host is the controller's address.
	Host string

	// Port is the HTTPS API port. Default: 443.
	Port int

	// Username and Password are the controller API credentials.
	Username string
	Password string

	// VerifySSL enables TLS certificate verification. Controllers ship
	// with self-signed certificates, so this defaults to off.
	VerifySSL bool

	// Timeout bounds each HTTP call. Default: 10 seconds.
	Timeout time.Duration

	// BaseURL overrides the https://host:port/api/v1 base when set.
	BaseURL string
}

// Client talks the controller's structured API.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The token cache is
//     guarded by a mutex held across the whole check-or-login section,
//     so concurrent callers arriving past expiry produce one login.
type Client struct {
	http *resty.Client
	cfg  Config

	mu      sync.Mutex
	session AuthSession

	// now is the clock; replaceable in tests to pin token expiry.
	now func() time.Time
}

// New creates a structured API client. No connection is made until the
// first call.
func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/api/v1",
			net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}

	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetTimeout(cfg.Timeout)
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")
	if !cfg.VerifySSL {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{
		http: r,
		cfg:  cfg,
		now:  time.Now,
	}
}

// BaseURL returns the API base the client calls.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// Ping logs in and reads the system document, verifying credentials and
// reachability in one round trip. A cached valid token short-circuits the
// login half.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SystemInfo(ctx)
	return err
}

// ensureToken returns a bearer token, logging in when the cached one is
// missing or inside the refresh margin. The mutex covers the whole
// check-or-login section: N callers arriving past expiry produce exactly
// one login and the rest reuse the fresh session.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Token != "" && c.now().Before(c.session.ExpiresAt.Add(-refreshMargin)) {
		return c.session.Token, nil
	}

	session, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.session = session
	return session.Token, nil
}

// login authenticates against the controller and returns a fresh session.
// Callers must hold c.mu.
func (c *Client) login(ctx context.Context) (AuthSession, error) {
	var result loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Username: c.cfg.Username, Password: c.cfg.Password}).
		SetResult(&result).
		Post(loginPath)
	if err != nil {
		return AuthSession{}, fmt.Errorf("%w: login: %w", ErrUnreachable, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return AuthSession{}, ErrUnauthorized
	}
	if resp.IsError() {
		return AuthSession{}, fmt.Errorf("login: %w",
			&StatusError{Code: resp.StatusCode(), Body: bodySnippet(resp)})
	}
	if result.AccessToken == "" {
		return AuthSession{}, errors.New("rest: login succeeded but returned no access token")
	}

	return AuthSession{
		Token:     result.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

// invalidate drops the cached session so the next call logs in again.
// Called when the controller rejects a token it previously issued.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.session = AuthSession{}
	c.mu.Unlock()
}

// get performs an authenticated GET, decoding a 2xx body into out when
// out is non-nil.
func (c *Client) get(ctx context.Context, path string, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx).SetAuthToken(token)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrUnreachable, path, err)
	}
	return c.checkStatus(resp, http.MethodGet, path)
}

// getBytes performs an authenticated GET and returns the raw body.
func (c *Client) getBytes(ctx context.Context, path string) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).SetAuthToken(token).Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrUnreachable, path, err)
	}
	if err := c.checkStatus(resp, http.MethodGet, path); err != nil {
		return nil, err
	}
	return append([]byte{}, resp.Body()...), nil
}

// put performs an authenticated PUT carrying a JSON body.
func (c *Client) put(ctx context.Context, path string, body any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		Put(path)
	if err != nil {
		return fmt.Errorf("%w: PUT %s: %w", ErrUnreachable, path, err)
	}
	return c.checkStatus(resp, http.MethodPut, path)
}

// checkStatus maps a non-2xx response to the error taxonomy. A 401 also
// drops the cached session; there is no automatic retry, the next call
// simply logs in again.
func (c *Client) checkStatus(resp *resty.Response, method, path string) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		c.invalidate()
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.IsError():
		return fmt.Errorf("%s %s: %w", method, path,
			&StatusError{Code: resp.StatusCode(), Body: bodySnippet(resp)})
	}
	return nil
}

// bodySnippet returns a trimmed, bounded view of the response body for
// error messages.
func bodySnippet(resp *resty.Response) string {
	body := strings.TrimSpace(resp.String())
	if len(body) > bodySnippetLimit {
		body = body[:bodySnippetLimit]
	}
	return body
}
