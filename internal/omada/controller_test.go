package omada

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeController is an in-process stand-in for an Omada controller. It
// issues rotating tokens, demands both the Csrf-Token header and the
// session cookie on authenticated paths, and lets tests flip failure
// modes per scenario.
type fakeController struct {
	srv *httptest.Server

	mu           sync.Mutex
	cid          string
	siteKey      string
	sites        []siteRef
	validToken   string
	loginCount   int
	logoutCount  int
	devicesCalls int
	portsCalls   int

	rejectLogin  bool
	rejectAuthed bool
	httpStyle    bool // report unauthorized as HTTP 403 instead of an app code

	devicesBody string
	portsBody   map[string]string
	profiles    map[string]string
	patchCode   int
	patched     []patchCall

	// requests counts every inbound request by "METHOD path",
	// including ones rejected as unauthorized.
	requests map[string]int
}

type patchCall struct {
	path string
	body map[string]any
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()
	f := &fakeController{
		cid:     "abc123",
		siteKey: "site1key",
		sites:   []siteRef{{Name: "Default", Key: "site1key"}, {Name: "Branch", Key: "site2key"}},
		devicesBody: `{"errorCode":0,"msg":"Success.","result":[` +
			`{"mac":"AA-BB-CC-DD-EE-01","type":"switch","name":"SW1","model":"TL-SG2210MP"}]}`,
		portsBody: make(map[string]string),
		profiles:  make(map[string]string),
		requests:  make(map[string]int),
	}
	f.srv = httptest.NewTLSServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// settings returns client settings pointed at the fake, with TLS
// verification off so the httptest certificate is accepted.
func (f *fakeController) settings(t *testing.T) Settings {
	t.Helper()
	u, err := url.Parse(f.srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return Settings{
		Host:     host,
		Port:     port,
		Username: "admin",
		Password: "secret",
		Site:     "Default",
		// Keep the limiter out of the way in tests.
		RequestsPerSecond: 1000,
	}
}

func (f *fakeController) client(t *testing.T) *Client {
	t.Helper()
	return NewClient(f.settings(t), zap.NewNop())
}

// expireSession invalidates the token the client currently holds; the
// next login issues a fresh valid one.
func (f *fakeController) expireSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validToken = "expired-" + f.validToken
}

func (f *fakeController) logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCount
}

func (f *fakeController) deviceListings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devicesCalls
}

func (f *fakeController) lastPatch(t *testing.T) patchCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patched) == 0 {
		t.Fatal("no PATCH captured")
	}
	return f.patched[len(f.patched)-1]
}

// hits returns how many requests arrived for "METHOD path", rejected
// ones included.
func (f *fakeController) hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

func (f *fakeController) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	f.mu.Lock()
	f.requests[r.Method+" "+path]++
	f.mu.Unlock()

	switch {
	case path == "/api/info":
		fmt.Fprintf(w, `{"errorCode":0,"msg":"Success.","result":{"omadacId":%q}}`, f.cid)

	case path == "/"+f.cid+"/api/v2/login" && r.Method == http.MethodPost:
		f.handleLogin(w, r)

	case path == "/"+f.cid+"/api/v2/logout" && r.Method == http.MethodPost:
		f.mu.Lock()
		f.logoutCount++
		f.mu.Unlock()
		fmt.Fprint(w, `{"errorCode":0,"msg":"Success."}`)

	default:
		f.handleAuthed(w, r)
	}
}

func (f *fakeController) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds map[string]string
	_ = json.NewDecoder(r.Body).Decode(&creds)

	f.mu.Lock()
	f.loginCount++
	if f.rejectLogin || creds["username"] != "admin" || creds["password"] != "secret" {
		f.mu.Unlock()
		fmt.Fprint(w, `{"errorCode":-30109,"msg":"invalid username or password"}`)
		return
	}
	f.validToken = fmt.Sprintf("tok-%d", f.loginCount)
	token := f.validToken
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "TPOMADA_SESSIONID", Value: "sess-" + token, Path: "/"})
	fmt.Fprintf(w, `{"errorCode":0,"msg":"Success.","result":{"token":%q}}`, token)
}

func (f *fakeController) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectAuthed {
		return false
	}
	token := r.Header.Get("Csrf-Token")
	if token == "" || token != f.validToken {
		return false
	}
	cookie, err := r.Cookie("TPOMADA_SESSIONID")
	return err == nil && cookie.Value == "sess-"+token
}

func (f *fakeController) unauthorized(w http.ResponseWriter) {
	if f.httpStyle {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errorCode":-1200,"msg":"login required"}`)
		return
	}
	fmt.Fprint(w, `{"errorCode":-30109,"msg":"token expired"}`)
}

func (f *fakeController) handleAuthed(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		f.unauthorized(w)
		return
	}

	path := r.URL.Path
	sitePrefix := "/" + f.cid + "/api/v2/sites/" + f.siteKey

	switch {
	case path == "/"+f.cid+"/api/v2/users/current":
		f.mu.Lock()
		sites, _ := json.Marshal(f.sites)
		f.mu.Unlock()
		fmt.Fprintf(w, `{"errorCode":0,"msg":"Success.","result":{"privilege":{"sites":%s}}}`, sites)

	case path == sitePrefix+"/devices":
		f.mu.Lock()
		f.devicesCalls++
		body := f.devicesBody
		f.mu.Unlock()
		fmt.Fprint(w, body)

	case strings.HasPrefix(path, sitePrefix+"/switches/") && strings.HasSuffix(path, "/ports") && r.Method == http.MethodGet:
		mac := strings.TrimSuffix(strings.TrimPrefix(path, sitePrefix+"/switches/"), "/ports")
		f.mu.Lock()
		f.portsCalls++
		body, ok := f.portsBody[mac]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)

	case strings.HasPrefix(path, sitePrefix+"/setting/lan/profiles/"):
		id := strings.TrimPrefix(path, sitePrefix+"/setting/lan/profiles/")
		f.mu.Lock()
		body, ok := f.profiles[id]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)

	case r.Method == http.MethodPatch:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.patched = append(f.patched, patchCall{path: path, body: body})
		code := f.patchCode
		f.mu.Unlock()
		fmt.Fprintf(w, `{"errorCode":%d,"msg":"done"}`, code)

	default:
		http.NotFound(w, r)
	}
}
