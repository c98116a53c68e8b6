package deck

import "context"

// ActionDefinition describes one pressable action the module exposes.
type ActionDefinition struct {
	// ID is the stable action identifier, unique within the module.
	ID string
	// Label is the name shown in the host UI.
	Label string
	// Options are the inputs the user configures on the button.
	Options []Option
	// Run executes the action with the configured option values. It
	// must never panic; failures are reported through the module's
	// logger and status sink rather than returned, because the host
	// has no error channel for presses.
	Run func(ctx context.Context, opts Options)
}

// FeedbackDefinition describes one boolean feedback the module exposes.
// The host evaluates feedbacks to decide button styling.
type FeedbackDefinition struct {
	// ID is the stable feedback identifier, unique within the module.
	ID string
	// Label is the name shown in the host UI.
	Label string
	// Options are the inputs the user configures on the feedback.
	Options []Option
	// Evaluate reports whether the feedback is active for the given
	// option values. It must be fast and side-effect free; the host
	// may call it on every state change.
	Evaluate func(opts Options) bool
}
