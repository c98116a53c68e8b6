package deckmod

import (
	"context"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/bridge"
	"github.com/soltegren/poedeck/pkg/deck"
)

// Action and feedback identifiers exposed to the host.
const (
	ActionPoeEnable  = "poe_enable"
	ActionPoeDisable = "poe_disable"
	ActionPoeToggle  = "poe_toggle"

	FeedbackPoeOn  = "poe_port_on"
	FeedbackPoeOff = "poe_port_off"
)

// maxPortNumber bounds the port option; the largest Omada switches
// carry 52 ports.
const maxPortNumber = 52

func (m *Module) Actions() []deck.ActionDefinition {
	return []deck.ActionDefinition{
		{
			ID:      ActionPoeEnable,
			Label:   "PoE: Power On Port",
			Options: m.targetOptions(),
			Run:     m.runSet(true),
		},
		{
			ID:      ActionPoeDisable,
			Label:   "PoE: Power Off Port",
			Options: m.targetOptions(),
			Run:     m.runSet(false),
		},
		{
			ID:      ActionPoeToggle,
			Label:   "PoE: Toggle Port",
			Options: m.targetOptions(),
			Run:     m.runToggle,
		},
	}
}

func (m *Module) Feedbacks() []deck.FeedbackDefinition {
	return []deck.FeedbackDefinition{
		{
			ID:       FeedbackPoeOn,
			Label:    "PoE: Port Is Powered",
			Options:  m.targetOptions(),
			Evaluate: m.evalPoe(true),
		},
		{
			ID:       FeedbackPoeOff,
			Label:    "PoE: Port Is Unpowered",
			Options:  m.targetOptions(),
			Evaluate: m.evalPoe(false),
		},
	}
}

// targetOptions is the shared device+port selector. Dropdown choices
// come from the latest directory event; the host re-reads them after a
// devices event on the bus.
func (m *Module) targetOptions() []deck.Option {
	return []deck.Option{
		{
			ID:      "device",
			Label:   "Device",
			Kind:    deck.OptionDropdown,
			Choices: m.deviceChoices(),
		},
		{
			ID:      "port",
			Label:   "Port",
			Kind:    deck.OptionNumber,
			Default: 1,
			Min:     1,
			Max:     maxPortNumber,
		},
	}
}

func (m *Module) runSet(enable bool) func(ctx context.Context, opts deck.Options) {
	action := ActionPoeDisable
	if enable {
		action = ActionPoeEnable
	}
	return func(ctx context.Context, opts deck.Options) {
		go m.execute(ctx, action, opts, func(ctx context.Context, br *bridge.Bridge, mac string, port int) error {
			return br.SetPortPoe(ctx, mac, port, enable)
		})
	}
}

func (m *Module) runToggle(ctx context.Context, opts deck.Options) {
	go m.execute(ctx, ActionPoeToggle, opts, func(ctx context.Context, br *bridge.Bridge, mac string, port int) error {
		return br.TogglePoe(ctx, mac, port)
	})
}

// execute runs one press off the host's goroutine. Presses have no
// error channel back to the host, so failures land in the log and, for
// session problems, in the status sink via the bridge; and a panic here
// must never take the host down.
func (m *Module) execute(ctx context.Context, action string, opts deck.Options, fn func(context.Context, *bridge.Bridge, string, int) error) {
	logger := m.actionLogger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("action panicked",
				zap.String("action", action), zap.Any("panic", r))
		}
	}()

	mac := opts.String("device")
	port := opts.Int("port")

	br := m.currentBridge()
	if br == nil {
		logger.Warn("action ignored, module not configured",
			zap.String("action", action),
			zap.String("device", mac),
			zap.Int("port", port))
		return
	}
	if err := fn(ctx, br, mac, port); err != nil {
		logger.Warn("action failed",
			zap.String("action", action),
			zap.String("device", mac),
			zap.Int("port", port),
			zap.Error(err))
	}
}

// evalPoe answers a feedback query from the cache. Unknown devices,
// unknown ports, and the unconfigured state all read as unpowered, so
// the "off" feedback is the one that lights up when nothing is known.
func (m *Module) evalPoe(want bool) func(opts deck.Options) bool {
	return func(opts deck.Options) bool {
		br := m.currentBridge()
		enabled := br != nil && br.PoeEnabled(opts.String("device"), opts.Int("port"))
		return enabled == want
	}
}

func (m *Module) actionLogger() *zap.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logger == nil {
		return zap.NewNop()
	}
	return m.logger
}
