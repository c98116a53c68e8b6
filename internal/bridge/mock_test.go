package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/internal/testutil"
	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

// mockClient is a controllerClient with canned data and call counters.
type mockClient struct {
	mu sync.Mutex

	connectErr error
	listErr    error
	portsErr   error
	profileErr error
	updateErr  error
	gatewayErr error

	devices  []models.Device
	ports    map[string][]omada.SwitchPort
	profiles map[string]*omada.PortProfile

	connectCalls int
	listCalls    int
	portsCalls   int
	profileCalls int
	logoutCalls  int
	updates      []recordedUpdate
	gatewaySets  []recordedGatewaySet
}

type recordedUpdate struct {
	mac  string
	port int
	upd  omada.SwitchPortUpdate
}

type recordedGatewaySet struct {
	mac    string
	port   int
	enable bool
}

// Compile-time interface guard.
var _ controllerClient = (*mockClient)(nil)

func newMockClient() *mockClient {
	return &mockClient{
		ports:    make(map[string][]omada.SwitchPort),
		profiles: make(map[string]*omada.PortProfile),
	}
}

func (m *mockClient) withDevices(devices ...models.Device) *mockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
	return m
}

func (m *mockClient) withPorts(mac string, ports ...omada.SwitchPort) *mockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ports[mac] = ports
	return m
}

func (m *mockClient) withProfile(p *omada.PortProfile) *mockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return m
}

func (m *mockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	return m.connectErr
}

func (m *mockClient) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutCalls++
}

func (m *mockClient) SiteKey() string { return "site1key" }

func (m *mockClient) ListDevices(ctx context.Context) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

func (m *mockClient) SwitchPorts(ctx context.Context, mac string) ([]omada.SwitchPort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portsCalls++
	if m.portsErr != nil {
		return nil, m.portsErr
	}
	out := make([]omada.SwitchPort, len(m.ports[mac]))
	copy(out, m.ports[mac])
	return out, nil
}

func (m *mockClient) PortProfile(ctx context.Context, profileID string) (*omada.PortProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileCalls++
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	p, ok := m.profiles[profileID]
	if !ok {
		return nil, &omada.NotFoundError{Resource: "profile", Key: profileID}
	}
	return p, nil
}

func (m *mockClient) UpdateSwitchPort(ctx context.Context, mac string, port int, upd omada.SwitchPortUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, recordedUpdate{mac: mac, port: port, upd: upd})
	return nil
}

func (m *mockClient) SetGatewayPoe(ctx context.Context, mac string, port int, enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gatewayErr != nil {
		return m.gatewayErr
	}
	m.gatewaySets = append(m.gatewaySets, recordedGatewaySet{mac: mac, port: port, enable: enable})
	return nil
}

func (m *mockClient) connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

func (m *mockClient) portFetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portsCalls
}

func (m *mockClient) profileFetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileCalls
}

func (m *mockClient) deviceListings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *mockClient) logouts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutCalls
}

func (m *mockClient) recordedUpdates() []recordedUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

func (m *mockClient) recordedGatewaySets() []recordedGatewaySet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedGatewaySet, len(m.gatewaySets))
	copy(out, m.gatewaySets)
	return out
}

func (m *mockClient) setConnectErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

func (m *mockClient) setPortsErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portsErr = err
}

// statusRecorder captures status transitions for assertions.
type statusRecorder struct {
	mu      sync.Mutex
	states  []deck.Status
	details []string
}

var _ deck.StatusSink = (*statusRecorder)(nil)

func (r *statusRecorder) SetStatus(s deck.Status, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	r.details = append(r.details, detail)
}

func (r *statusRecorder) last() deck.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func (r *statusRecorder) saw(s deck.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.states {
		if got == s {
			return true
		}
	}
	return false
}

func (r *statusRecorder) lastDetail() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.details) == 0 {
		return ""
	}
	return r.details[len(r.details)-1]
}

// newTestBridge wires a Bridge to the mock with short test intervals.
// The bridge is not started; lifecycle tests call Start themselves.
func newTestBridge(t *testing.T, mock *mockClient) (*Bridge, *statusRecorder, *testutil.MockBus) {
	t.Helper()

	rec := &statusRecorder{}
	bus := testutil.NewMockBus()
	b := New(Params{
		Settings:          omada.Settings{Host: "controller.test", Username: "admin", Password: "pw", Site: "Default"},
		DiscoveryInterval: 40 * time.Millisecond,
		StatusInterval:    20 * time.Millisecond,
		ReconnectDelay:    30 * time.Millisecond,
		ConfirmDelay:      30 * time.Millisecond,
		Logger:            testutil.Logger(),
		Status:            rec,
		Bus:               bus,
	})
	b.newClient = func(omada.Settings, *zap.Logger) controllerClient { return mock }
	t.Cleanup(b.Teardown)
	return b, rec, bus
}

// seedConnected puts the bridge into the connected state without
// running the connect loop, with the given directory entries.
func seedConnected(t *testing.T, b *Bridge, mock *mockClient, devices ...models.Device) {
	t.Helper()
	b.mu.Lock()
	b.client = mock
	for _, d := range devices {
		b.devices[d.MAC] = d
	}
	b.mu.Unlock()
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
