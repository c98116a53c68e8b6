package bridge

import (
	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

// Bus topics published by the bridge. Subscribers get exactly one
// payload type per topic.
const (
	// TopicDevices carries a DevicesChanged after a discovery pass
	// that added, removed, or renamed devices.
	TopicDevices = "omada.devices"
	// TopicPortStates carries a PortStatesRefreshed after each
	// authoritative refresh of one device's ports; feedback evaluators
	// re-run on it.
	TopicPortStates = "omada.port_states"
	// TopicStatus carries a StatusChanged on every connectivity
	// transition.
	TopicStatus = "omada.status"
)

// DevicesChanged is the TopicDevices payload: the full directory
// snapshot after the change.
type DevicesChanged struct {
	Devices []models.Device
}

// PortStatesRefreshed is the TopicPortStates payload.
type PortStatesRefreshed struct {
	MAC string
}

// StatusChanged is the TopicStatus payload.
type StatusChanged struct {
	Status deck.Status
	Detail string
}
