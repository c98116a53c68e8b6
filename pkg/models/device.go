package models

import (
	"fmt"
	"strings"
)

// DeviceKind categorizes a controller-managed device by its control path.
type DeviceKind string

const (
	KindSwitch  DeviceKind = "switch"
	KindGateway DeviceKind = "gateway"
	KindUnknown DeviceKind = "unknown"
)

// Device represents a controller-managed device tracked by poedeck.
// MAC is the immutable identity; display attributes are replaced wholesale
// on each discovery refresh.
type Device struct {
	MAC   string     `json:"mac"`
	Kind  DeviceKind `json:"kind"`
	Name  string     `json:"name"`
	Model string     `json:"model,omitempty"`
}

// PoeCapable reports whether the device kind has a PoE control path.
// Unknown kinds are treated as switches; the controller rejects the call if
// the device turns out not to support it, which is preferable to silently
// dropping devices from newer firmware that reports unrecognized type tags.
func (k DeviceKind) PoeCapable() bool {
	return k == KindSwitch || k == KindGateway || k == KindUnknown
}

// KindFromTypeTag maps a controller "type" tag to a DeviceKind.
func KindFromTypeTag(tag string) DeviceKind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "switch":
		return KindSwitch
	case "gateway", "router":
		return KindGateway
	default:
		return KindUnknown
	}
}

// NormalizeMAC converts a MAC address in any common format
// (AA:BB:CC:DD:EE:FF, aa-bb-cc-dd-ee-ff, AABB.CCDD.EEFF, aabbccddeeff)
// to the canonical uppercase dash-separated form the controller uses.
func NormalizeMAC(mac string) (string, error) {
	raw := strings.ToUpper(mac)
	raw = strings.ReplaceAll(raw, ":", "")
	raw = strings.ReplaceAll(raw, "-", "")
	raw = strings.ReplaceAll(raw, ".", "")

	if len(raw) != 12 {
		return "", fmt.Errorf("mac %q: want 12 hex digits, got %d", mac, len(raw))
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return "", fmt.Errorf("mac %q: invalid hex digit %q", mac, c)
		}
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(raw[i : i+2])
	}
	return b.String(), nil
}
