// Package omada is a minimal client for TP-Link Omada-style switch
// controllers, covering exactly the surface PoE port control needs:
// session establishment, site-scoped device and port queries, and the
// profile-preserving port override. It is not a general controller API.
package omada

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout           = 15 * time.Second
	defaultRequestsPerSecond = 10
	defaultBurst             = 5

	// maxResponseBytes bounds controller responses; device listings on
	// large sites stay well under this.
	maxResponseBytes = 8 << 20
)

// Settings is the connection configuration handed to NewClient. It maps
// one-to-one onto the user-facing instance settings.
type Settings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Site      string
	VerifyTLS bool

	// Timeout bounds each request; zero means a 15s default.
	Timeout time.Duration
	// RequestsPerSecond caps the call rate against slow controller
	// hardware; zero means a default of 10.
	RequestsPerSecond float64
}

func (s Settings) baseURL() string {
	host := strings.TrimPrefix(strings.TrimPrefix(s.Host, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	port := s.Port
	if port <= 0 {
		port = 443
	}
	return fmt.Sprintf("https://%s:%d", host, port)
}

// Client talks to one controller with one credential set. A Client is
// built per connection attempt and discarded on teardown, so failed
// attempts never leak partial session state into the next one. Safe for
// concurrent use once Connect has returned.
type Client struct {
	st      Settings
	base    string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu             sync.Mutex
	cid            string
	token          string
	siteKey        string
	siteResolved   bool
	fallbackWarned bool
}

// NewClient builds a client for the given controller. No network
// activity happens until Connect.
func NewClient(st Settings, logger *zap.Logger) *Client {
	if st.Timeout <= 0 {
		st.Timeout = defaultTimeout
	}
	rps := st.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	// Controllers commonly ship self-signed certificates; verification
	// is an explicit user setting.
	jar, _ := cookiejar.New(nil)
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !st.VerifyTLS},
	}
	return &Client{
		st:   st,
		base: st.baseURL(),
		http: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   st.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), defaultBurst),
		logger:  logger.Named("omada"),
	}
}

// SiteKey returns the site identifier in use: the resolved internal key,
// or the configured value verbatim when resolution found no match.
func (c *Client) SiteKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.siteKey
}

// request performs one HTTP exchange and returns the raw body. It maps
// HTTP 401/403 and token-expiry application codes to errUnauthorized
// for the retry layer; everything else comes back as a typed error.
func (c *Client) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	op := method + " " + path
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Csrf-Token", c.token)
	}
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("controller call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		c.warnSiteFallback(path)
		return nil, &NotFoundError{Resource: "endpoint", Key: path}
	case resp.StatusCode >= 400:
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	// Some firmwares report token expiry as an application code under
	// HTTP 200.
	var env apiResponse
	if json.Unmarshal(raw, &env) == nil && unauthorizedCodes[env.ErrorCode] {
		return nil, errUnauthorized
	}
	return raw, nil
}

// authed wraps request with the session-expiry recovery rule: exactly
// one re-login followed by exactly one retry, then give up with
// *AuthError.
func (c *Client) authed(ctx context.Context, method, path string, body any) ([]byte, error) {
	raw, err := c.request(ctx, method, path, body)
	if !errors.Is(err, errUnauthorized) {
		return raw, err
	}

	c.logger.Info("session expired, re-authenticating", zap.String("path", path))
	if err := c.login(ctx); err != nil {
		return nil, err
	}
	raw, err = c.request(ctx, method, path, body)
	if errors.Is(err, errUnauthorized) {
		return nil, &AuthError{Op: method + " " + path, Err: errors.New("still unauthorized after re-login")}
	}
	return raw, err
}

// getJSON performs an authenticated GET and decodes the envelope result
// into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	raw, err := c.authed(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	res, err := resultOf("GET "+path, raw)
	if err != nil {
		return err
	}
	if out == nil || len(res) == 0 {
		return nil
	}
	if err := json.Unmarshal(res, out); err != nil {
		return &NetworkError{Op: "GET " + path, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// send performs an authenticated mutation and checks the envelope for
// an application-level rejection. The controller can reject a payload
// under HTTP 200; that surfaces here as *ValidationError.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	raw, err := c.authed(ctx, method, path, body)
	if err != nil {
		return err
	}
	_, err = resultOf(method+" "+path, raw)
	return err
}

// resultOf decodes the standard envelope, converting a non-zero
// application code into *ValidationError.
func resultOf(op string, raw []byte) (json.RawMessage, error) {
	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if env.ErrorCode != 0 {
		return nil, &ValidationError{Op: op, Code: env.ErrorCode, Msg: env.Msg}
	}
	return env.Result, nil
}

func (c *Client) classify(op string, err error) error {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostname) || errors.As(err, &invalid) {
		return &CertificateError{Host: c.st.Host, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

// warnSiteFallback flags the likeliest cause of a site-scoped 404 when
// the configured site name never matched a known site: the requests are
// running with the raw name where the controller wants a key. Warned
// once per connection to keep poll noise down.
func (c *Client) warnSiteFallback(path string) {
	if !strings.Contains(path, "/sites/") {
		return
	}
	c.mu.Lock()
	skip := c.siteResolved || c.fallbackWarned
	if !skip {
		c.fallbackWarned = true
	}
	c.mu.Unlock()
	if skip {
		return
	}
	c.logger.Warn("site-scoped request returned 404 with an unresolved site name; verify the configured site",
		zap.String("site", c.st.Site))
}

func (c *Client) sitePath(suffix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("/%s/api/v2/sites/%s%s", c.cid, url.PathEscape(c.siteKey), suffix)
}
