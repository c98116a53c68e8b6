// Package bridge is the connection-scoped engine between the deck
// module and one controller session. A Bridge owns everything whose
// lifetime equals the connection: the API client, the device directory,
// the port-state cache with its confirmation timers, and the poll
// loops. Reconfiguration tears the whole Bridge down and builds a new
// one; two bridges never run for the same module instance.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/netdiag"
	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

const (
	defaultDiscoveryInterval = 5 * time.Minute
	defaultStatusInterval    = 3 * time.Second
	defaultReconnectDelay    = 30 * time.Second
	// defaultConfirmDelay must exceed the slowest observed PoE relay
	// settle time, which runs into low double-digit seconds on some
	// hardware.
	defaultConfirmDelay = 15 * time.Second

	teardownLogoutTimeout = 5 * time.Second
)

// controllerClient is the slice of the omada client the bridge uses.
type controllerClient interface {
	Connect(ctx context.Context) error
	Logout(ctx context.Context)
	SiteKey() string
	ListDevices(ctx context.Context) ([]models.Device, error)
	SwitchPorts(ctx context.Context, mac string) ([]omada.SwitchPort, error)
	PortProfile(ctx context.Context, profileID string) (*omada.PortProfile, error)
	UpdateSwitchPort(ctx context.Context, mac string, port int, upd omada.SwitchPortUpdate) error
	SetGatewayPoe(ctx context.Context, mac string, port int, enable bool) error
}

// Compile-time interface guard.
var _ controllerClient = (*omada.Client)(nil)

// Params configures a Bridge. Settings, Logger, Status, and Bus are
// required; everything else has defaults.
type Params struct {
	Settings omada.Settings

	DiscoveryInterval time.Duration
	StatusInterval    time.Duration
	ReconnectDelay    time.Duration
	ConfirmDelay      time.Duration

	Logger  *zap.Logger
	Status  deck.StatusSink
	Bus     deck.EventBus
	Prober  *netdiag.Prober
	Metrics *Metrics
}

type portKey struct {
	mac  string
	port int
}

type portState struct {
	poe        bool
	profileID  string
	optimistic bool
}

type confirmEntry struct {
	gen   uint64
	timer *time.Timer
}

// Bridge binds one controller session to the caches and loops serving
// the deck module. Zero-allocation reads come from the cache; all
// network traffic happens in the loops and in explicit mutations.
type Bridge struct {
	params  Params
	logger  *zap.Logger
	status  deck.StatusSink
	bus     deck.EventBus
	prober  *netdiag.Prober
	metrics *Metrics

	discoveryEvery time.Duration
	statusEvery    time.Duration
	reconnectAfter time.Duration
	confirmAfter   time.Duration

	// newClient and now are swapped by tests.
	newClient func(omada.Settings, *zap.Logger) controllerClient
	now       func() time.Time

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	mu         sync.Mutex
	client     controllerClient
	devices    map[string]models.Device
	ports      map[portKey]portState
	confirms   map[portKey]confirmEntry
	confirmGen uint64
	lastSync   time.Time
	lastStatus deck.Status
	started    bool
	closed     bool
}

// New builds a Bridge. Nothing connects until Start.
func New(p Params) *Bridge {
	if p.DiscoveryInterval <= 0 {
		p.DiscoveryInterval = defaultDiscoveryInterval
	}
	if p.StatusInterval <= 0 {
		p.StatusInterval = defaultStatusInterval
	}
	if p.ReconnectDelay <= 0 {
		p.ReconnectDelay = defaultReconnectDelay
	}
	if p.ConfirmDelay <= 0 {
		p.ConfirmDelay = defaultConfirmDelay
	}
	if p.Metrics == nil {
		p.Metrics = NewMetrics()
	}

	connID := uuid.NewString()[:8]
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		params:         p,
		logger:         p.Logger.Named("bridge").With(zap.String("conn", connID)),
		status:         p.Status,
		bus:            p.Bus,
		prober:         p.Prober,
		metrics:        p.Metrics,
		discoveryEvery: p.DiscoveryInterval,
		statusEvery:    p.StatusInterval,
		reconnectAfter: p.ReconnectDelay,
		confirmAfter:   p.ConfirmDelay,
		newClient: func(st omada.Settings, logger *zap.Logger) controllerClient {
			return omada.NewClient(st, logger)
		},
		now:       time.Now,
		runCtx:    ctx,
		runCancel: cancel,
		devices:   make(map[string]models.Device),
		ports:     make(map[portKey]portState),
		confirms:  make(map[portKey]confirmEntry),
	}
}

// Start launches the connect sequence in the background and returns
// immediately. Progress and failures surface through the status sink.
func (b *Bridge) Start() {
	b.mu.Lock()
	if b.started || b.closed {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.connectLoop()
}

// Teardown cancels every loop and pending confirmation timer, logs out
// best-effort, and drops all cached state. In-flight mutations are not
// aborted; their late cache writes are discarded. Safe to call twice.
func (b *Bridge) Teardown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	client := b.client
	b.client = nil
	for key, entry := range b.confirms {
		entry.timer.Stop()
		delete(b.confirms, key)
	}
	b.ports = make(map[portKey]portState)
	b.devices = make(map[string]models.Device)
	b.mu.Unlock()

	b.runCancel()
	b.wg.Wait()

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), teardownLogoutTimeout)
		defer cancel()
		client.Logout(ctx)
	}
	b.metrics.Connected.Set(0)
	b.metrics.CachedPorts.Set(0)
	b.logger.Info("bridge torn down")
}

// currentClient returns the live client, or false when not connected.
func (b *Bridge) currentClient() (controllerClient, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.client == nil {
		return nil, false
	}
	return b.client, true
}

// setStatus forwards a status transition to the host and the bus,
// suppressing repeats of the same state.
func (b *Bridge) setStatus(s deck.Status, detail string) {
	b.mu.Lock()
	if b.closed || b.lastStatus == s {
		b.mu.Unlock()
		return
	}
	b.lastStatus = s
	b.mu.Unlock()

	if s == deck.StatusOK {
		b.metrics.Connected.Set(1)
	} else {
		b.metrics.Connected.Set(0)
	}
	b.logger.Info("status changed", zap.String("status", string(s)), zap.String("detail", detail))
	if b.status != nil {
		b.status.SetStatus(s, detail)
	}
	if b.bus != nil {
		_ = b.bus.Publish(b.runCtx, deck.Event{
			Topic:   TopicStatus,
			Source:  "bridge",
			Payload: StatusChanged{Status: s, Detail: detail},
		})
	}
}

// observe records one controller API call in the metrics.
func (b *Bridge) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	b.metrics.APIRequests.WithLabelValues(op, outcome).Inc()
	b.metrics.APILatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
