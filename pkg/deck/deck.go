// Package deck defines the contract between a control-surface module and
// the button-deck host that embeds it. The host constructs a Module, wires
// in Dependencies, pushes instance configuration through Configure, and
// renders the actions and feedbacks the module exposes. Everything the
// module needs from the host arrives through this package; nothing in
// internal/ is visible across the boundary.
package deck

import (
	"context"

	"go.uber.org/zap"
)

// Info identifies a module to the host.
type Info struct {
	// ID is the stable machine identifier, e.g. "omada-poe".
	ID string
	// Name is the human-readable module name.
	Name string
	// Version is the module version string.
	Version string
	// Description is a one-line summary shown in the host UI.
	Description string
}

// Dependencies carries the host facilities a module may use. All fields
// are set before Init is called and remain valid until Destroy returns.
type Dependencies struct {
	// Logger is the host-provided structured logger, already scoped to
	// the module instance.
	Logger *zap.Logger
	// Status receives instance status transitions for display in the
	// host UI.
	Status StatusSink
	// Bus distributes module events (device lists, feedback refreshes)
	// to the host.
	Bus EventBus
}

// Module is the lifecycle contract a control-surface module implements.
//
// The host drives it in a fixed order: Init once, Configure with the
// initial settings, Configure again on every settings change, Destroy
// once at teardown. Actions and Feedbacks may be called at any point
// after Init. A module must tolerate Configure racing its own background
// work and must release every resource in Destroy.
type Module interface {
	// Info returns static module identity. Must be callable before Init.
	Info() Info

	// Init prepares the module with its host dependencies. No network
	// activity should happen here; connection setup belongs in Configure
	// once settings are known.
	Init(ctx context.Context, deps Dependencies) error

	// Configure applies instance settings. It is called after Init with
	// the initial settings and again whenever the user edits them. The
	// module is expected to tear down and rebuild its connection when
	// the settings change.
	Configure(ctx context.Context, cfg Options) error

	// Actions returns the action definitions the module exposes. The
	// set is static for the lifetime of the instance.
	Actions() []ActionDefinition

	// Feedbacks returns the feedback definitions the module exposes.
	Feedbacks() []FeedbackDefinition

	// Destroy releases all resources. The module must not touch the
	// bus, status sink, or logger after Destroy returns.
	Destroy(ctx context.Context) error
}
