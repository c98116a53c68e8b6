package deck

import (
	"fmt"
	"strconv"
)

// Options is the untyped value bag the host hands to a module: instance
// settings in Configure, and the user-selected option values of an action
// or feedback invocation. Values cross a serialization boundary on the
// host side, so numbers may arrive as float64 and anything may arrive as
// a string; the typed getters coerce accordingly.
type Options map[string]any

// String returns the value for key as a string, or "" when absent.
func (o Options) String(key string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value for key as an int, coercing numeric and string
// forms. Absent or unparseable values yield 0.
func (o Options) Int(key string) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool returns the value for key as a bool. Strings are parsed with
// strconv.ParseBool and numbers are true when non-zero. Absent or
// unparseable values yield false.
func (o Options) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false
		}
		return b
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// IsSet reports whether key is present with a non-nil value.
func (o Options) IsSet(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// OptionKind selects the host UI widget for an option.
type OptionKind string

const (
	OptionText     OptionKind = "text"
	OptionNumber   OptionKind = "number"
	OptionDropdown OptionKind = "dropdown"
	OptionCheckbox OptionKind = "checkbox"
)

// Choice is one selectable entry of a dropdown option.
type Choice struct {
	Value string
	Label string
}

// Option describes one configurable input of an action or feedback.
type Option struct {
	ID      string
	Label   string
	Kind    OptionKind
	Default any
	// Min and Max bound number options; both zero means unbounded.
	Min int
	Max int
	// Choices populates dropdown options. The host refreshes dropdown
	// contents when the module publishes a choices event on the bus.
	Choices []Choice
}
