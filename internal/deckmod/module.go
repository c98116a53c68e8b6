// Package deckmod implements the PoE control module the button-deck
// host loads: it translates instance settings into a controller
// session, exposes PoE port actions and cache-backed feedbacks, and
// keeps device dropdowns current from directory events.
//
// The module itself holds almost no state. Everything tied to one
// controller session lives in a bridge.Bridge; Configure swaps the
// whole bridge out, so a settings edit can never leak connections or
// timers from the previous configuration.
package deckmod

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/bridge"
	"github.com/soltegren/poedeck/internal/netdiag"
	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/internal/version"
	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

// ModuleID is the stable identifier the host knows this module by.
const ModuleID = "omada-poe"

// Instance setting keys accepted by Configure.
const (
	settingHost      = "host"
	settingPort      = "port"
	settingUsername  = "username"
	settingPassword  = "password"
	settingSite      = "site"
	settingVerifyTLS = "verify_tls"
)

// Params carries runner-level tuning that is not part of the instance
// settings a user edits in the host UI. Zero values select the bridge
// and client defaults.
type Params struct {
	DiscoveryInterval time.Duration
	StatusInterval    time.Duration
	ReconnectDelay    time.Duration
	ConfirmDelay      time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Prober            *netdiag.Prober
}

// Module is the deck.Module for Omada PoE control.
type Module struct {
	params  Params
	metrics *bridge.Metrics

	mu          sync.Mutex
	deps        deck.Dependencies
	logger      *zap.Logger
	br          *bridge.Bridge
	unsubscribe func()
	choices     []deck.Choice
}

// Compile-time interface guard.
var _ deck.Module = (*Module)(nil)

// New builds the module. Metrics collectors are created once here and
// shared across every bridge the module builds, because a collector can
// only be registered with a Prometheus registry once.
func New(params Params) *Module {
	return &Module{
		params:  params,
		metrics: bridge.NewMetrics(),
	}
}

// Metrics exposes the module's collectors for registration by the
// runner.
func (m *Module) Metrics() *bridge.Metrics { return m.metrics }

func (m *Module) Info() deck.Info {
	return deck.Info{
		ID:          ModuleID,
		Name:        "Omada PoE Control",
		Version:     version.Short(),
		Description: "Power switch and gateway PoE ports on and off through an Omada controller",
	}
}

// Init stores the host dependencies and subscribes to directory events
// so device dropdowns refresh as discovery runs. No network activity
// happens until Configure supplies settings.
func (m *Module) Init(_ context.Context, deps deck.Dependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps = deps
	m.logger = logger.Named("module")
	if deps.Bus != nil {
		m.unsubscribe = deps.Bus.Subscribe(bridge.TopicDevices, m.onDevices)
	}
	return nil
}

// Configure applies instance settings, replacing any previous
// controller session wholesale. Missing required settings surface as
// bad_config and leave the module disconnected.
func (m *Module) Configure(_ context.Context, cfg deck.Options) error {
	host := strings.TrimSpace(cfg.String(settingHost))
	username := cfg.String(settingUsername)
	password := cfg.String(settingPassword)

	var missing []string
	if host == "" {
		missing = append(missing, settingHost)
	}
	if username == "" {
		missing = append(missing, settingUsername)
	}
	if password == "" {
		missing = append(missing, settingPassword)
	}
	if len(missing) > 0 {
		detail := "missing required settings: " + strings.Join(missing, ", ")
		m.swapBridge(nil)
		m.reportStatus(deck.StatusBadConfig, detail)
		return fmt.Errorf("deckmod: %s", detail)
	}

	settings := omada.Settings{
		Host:              host,
		Port:              cfg.Int(settingPort),
		Username:          username,
		Password:          password,
		Site:              cfg.String(settingSite),
		VerifyTLS:         true,
		Timeout:           m.params.RequestTimeout,
		RequestsPerSecond: m.params.RequestsPerSecond,
	}
	if settings.Site == "" {
		settings.Site = "Default"
	}
	if cfg.IsSet(settingVerifyTLS) {
		settings.VerifyTLS = cfg.Bool(settingVerifyTLS)
	}

	m.mu.Lock()
	logger := m.logger
	deps := m.deps
	m.mu.Unlock()

	br := bridge.New(bridge.Params{
		Settings:          settings,
		DiscoveryInterval: m.params.DiscoveryInterval,
		StatusInterval:    m.params.StatusInterval,
		ReconnectDelay:    m.params.ReconnectDelay,
		ConfirmDelay:      m.params.ConfirmDelay,
		Logger:            logger,
		Status:            deps.Status,
		Bus:               deps.Bus,
		Prober:            m.params.Prober,
		Metrics:           m.metrics,
	})
	m.swapBridge(br)

	logger.Info("configured",
		zap.String("host", settings.Host),
		zap.String("site", settings.Site),
		zap.Bool("verify_tls", settings.VerifyTLS))
	br.Start()
	return nil
}

// Destroy tears down the active bridge and detaches from the bus.
func (m *Module) Destroy(_ context.Context) error {
	m.mu.Lock()
	br := m.br
	m.br = nil
	unsub := m.unsubscribe
	m.unsubscribe = nil
	logger := m.logger
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if br != nil {
		br.Teardown()
	}
	if logger != nil {
		logger.Info("module destroyed")
	}
	return nil
}

// swapBridge installs br (which may be nil) and tears down whatever ran
// before. The old bridge finishes its teardown before the new one is
// visible to actions, so at most one session talks to the controller.
func (m *Module) swapBridge(br *bridge.Bridge) {
	m.mu.Lock()
	old := m.br
	m.br = br
	m.mu.Unlock()

	if old != nil {
		old.Teardown()
	}
}

func (m *Module) currentBridge() *bridge.Bridge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.br
}

// Devices returns the directory of the active controller session. The
// second return is false while the module has no configured bridge.
func (m *Module) Devices() ([]models.Device, bool) {
	br := m.currentBridge()
	if br == nil {
		return nil, false
	}
	return br.Devices(), true
}

func (m *Module) reportStatus(s deck.Status, detail string) {
	m.mu.Lock()
	sink := m.deps.Status
	logger := m.logger
	m.mu.Unlock()

	if logger != nil {
		logger.Warn("status", zap.String("status", string(s)), zap.String("detail", detail))
	}
	if sink != nil {
		sink.SetStatus(s, detail)
	}
}

// onDevices rebuilds the device dropdown choices from a directory
// event. Devices whose kind has no PoE control path are filtered out.
func (m *Module) onDevices(_ context.Context, e deck.Event) {
	payload, ok := e.Payload.(bridge.DevicesChanged)
	if !ok {
		return
	}

	choices := make([]deck.Choice, 0, len(payload.Devices))
	for _, d := range payload.Devices {
		if !d.Kind.PoeCapable() {
			continue
		}
		label := d.Name
		if label == "" {
			label = d.MAC
		}
		choices = append(choices, deck.Choice{
			Value: d.MAC,
			Label: fmt.Sprintf("%s (%s)", label, d.MAC),
		})
	}

	m.mu.Lock()
	m.choices = choices
	m.mu.Unlock()
}

func (m *Module) deviceChoices() []deck.Choice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]deck.Choice, len(m.choices))
	copy(out, m.choices)
	return out
}
