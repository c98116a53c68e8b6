package omada

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Connect establishes a session: controller identity, credential
// exchange, and site-key resolution, in that order. Identity and login
// failures abort the connect; site resolution never does.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.discover(ctx); err != nil {
		return err
	}
	if err := c.login(ctx); err != nil {
		return err
	}
	c.resolveSite(ctx)
	return nil
}

// discover resolves the controller identifier that prefixes every
// authenticated path.
func (c *Client) discover(ctx context.Context) error {
	raw, err := c.request(ctx, http.MethodGet, "/api/info", nil)
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			return &NetworkError{Op: "discover", Err: errors.New("discovery endpoint demanded authentication")}
		}
		return err
	}

	var info controllerInfo
	if res, rerr := resultOf("GET /api/info", raw); rerr == nil && len(res) > 0 {
		_ = json.Unmarshal(res, &info)
	}
	if info.OmadacID == "" {
		// Older firmwares return the info object without an envelope.
		_ = json.Unmarshal(raw, &info)
	}
	if info.OmadacID == "" {
		return &NetworkError{Op: "discover", Err: errors.New("response carries no controller id")}
	}

	c.mu.Lock()
	c.cid = info.OmadacID
	c.mu.Unlock()
	c.logger.Debug("controller identified", zap.String("cid", info.OmadacID))
	return nil
}

// login exchanges credentials for a session token. The token rides the
// Csrf-Token header on every later call; session cookies are captured
// by the client's cookie jar. Rejection maps to *AuthError: the user
// remedy is almost always the credentials.
func (c *Client) login(ctx context.Context) error {
	c.mu.Lock()
	cid := c.cid
	c.mu.Unlock()

	body := map[string]string{
		"username": c.st.Username,
		"password": c.st.Password,
	}
	raw, err := c.request(ctx, http.MethodPost, "/"+cid+"/api/v2/login", body)
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			return &AuthError{Op: "login", Err: errors.New("credentials rejected")}
		}
		return err
	}

	res, err := resultOf("POST login", raw)
	if err != nil {
		var rejected *ValidationError
		if errors.As(err, &rejected) {
			return &AuthError{Op: "login", Err: rejected}
		}
		return err
	}

	var lr loginResult
	if err := json.Unmarshal(res, &lr); err != nil || lr.Token == "" {
		return &NetworkError{Op: "login", Err: errors.New("login response carries no token")}
	}

	c.mu.Lock()
	c.token = lr.Token
	c.mu.Unlock()
	c.logger.Debug("session established")
	return nil
}

// resolveSite maps the configured site name to its internal key by
// exact, case-sensitive match against the account's site memberships.
// No match keeps the configured value verbatim: software controllers
// accept names directly, so failing here would break those deployments.
// This step never fails the connect.
func (c *Client) resolveSite(ctx context.Context) {
	c.mu.Lock()
	cid := c.cid
	c.mu.Unlock()

	site := c.st.Site
	if site == "" {
		site = "Default"
	}

	var user currentUser
	if err := c.getJSON(ctx, "/"+cid+"/api/v2/users/current", &user); err != nil {
		c.logger.Warn("site resolution skipped, using configured value as-is",
			zap.String("site", site), zap.Error(err))
		c.setSite(site, false)
		return
	}

	for _, ref := range user.Privilege.Sites {
		if ref.Name == site {
			c.logger.Debug("site resolved", zap.String("site", site), zap.String("key", ref.Key))
			c.setSite(ref.Key, true)
			return
		}
	}

	c.logger.Warn("configured site not among account sites, using value as-is; verify the site name if device queries 404",
		zap.String("site", site))
	c.setSite(site, false)
}

func (c *Client) setSite(key string, resolved bool) {
	c.mu.Lock()
	c.siteKey = key
	c.siteResolved = resolved
	c.mu.Unlock()
}

// Logout ends the controller session. Best-effort: failures are logged
// and never returned, and local session state clears regardless.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	cid, token := c.cid, c.token
	c.mu.Unlock()
	if cid == "" || token == "" {
		return
	}

	if _, err := c.request(ctx, http.MethodPost, "/"+cid+"/api/v2/logout", nil); err != nil {
		c.logger.Debug("logout failed", zap.Error(err))
	}

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
