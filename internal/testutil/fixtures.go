package testutil

import "github.com/soltegren/poedeck/pkg/models"

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields after creation as needed.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		MAC:   "AA-BB-CC-DD-EE-FF",
		Kind:  models.KindSwitch,
		Name:  "test-switch",
		Model: "TL-SG2210MP",
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithMAC sets the device's MAC address.
func WithMAC(mac string) func(*models.Device) {
	return func(d *models.Device) { d.MAC = mac }
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithKind sets the device kind.
func WithKind(k models.DeviceKind) func(*models.Device) {
	return func(d *models.Device) { d.Kind = k }
}

// WithModel sets the device model string.
func WithModel(model string) func(*models.Device) {
	return func(d *models.Device) { d.Model = model }
}
