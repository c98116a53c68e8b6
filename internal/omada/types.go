package omada

import "encoding/json"

// apiResponse is the standard controller envelope. Result stays raw so
// each call can decode its own shape.
type apiResponse struct {
	ErrorCode int             `json:"errorCode"`
	Msg       string          `json:"msg"`
	Result    json.RawMessage `json:"result"`
}

// controllerInfo is the unauthenticated discovery payload. Only the
// controller identifier matters; it prefixes every later path.
type controllerInfo struct {
	OmadacID string `json:"omadacId"`
}

type loginResult struct {
	Token string `json:"token"`
}

// currentUser carries the site memberships of the logged-in account.
type currentUser struct {
	Privilege struct {
		Sites []siteRef `json:"sites"`
	} `json:"privilege"`
}

type siteRef struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// deviceRecord is one raw entry of the site device listing, whatever
// envelope it arrived in.
type deviceRecord struct {
	MAC   string `json:"mac"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// SwitchPort is one entry of a switch's port-detail listing.
type SwitchPort struct {
	Port                  int        `json:"port"`
	Name                  string     `json:"name"`
	ProfileID             string     `json:"profileId"`
	ProfileOverrideEnable bool       `json:"profileOverrideEnable"`
	Status                PortStatus `json:"portStatus"`
}

// PortStatus is the nested live-status object of a switch port.
type PortStatus struct {
	Poe bool `json:"poe"`
}

// PortProfile is a configuration profile bound to one or more switch
// ports. Fields are pointers so an absent field is distinguishable from
// an explicit zero; the merge in NewSwitchPortUpdate defaults each
// absent field.
type PortProfile struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Poe                  *int   `json:"poe"`
	LinkSpeed            *int   `json:"linkSpeed"`
	Duplex               *int   `json:"duplex"`
	Dot1x                *int   `json:"dot1x"`
	BandWidthCtrlType    *int   `json:"bandWidthCtrlType"`
	SpanningTreeEnable   *bool  `json:"spanningTreeEnable"`
	LoopbackDetectEnable *bool  `json:"loopbackDetectEnable"`
	FlowControlEnable    *bool  `json:"flowControlEnable"`
	PortIsolationEnable  *bool  `json:"portIsolationEnable"`
	LldpMedEnable        *bool  `json:"lldpMedEnable"`
	TopoNotifyEnable     *bool  `json:"topoNotifyEnable"`
}

// SwitchPortUpdate is the complete override payload for a switch port
// PATCH. Every profile-sourced field is always present: the controller
// silently reverts any omitted field to its profile default, so a
// partial payload can report success while changing nothing. Poe is an
// integer on the wire; the controller rejects a boolean here.
type SwitchPortUpdate struct {
	Name                  string `json:"name"`
	ProfileID             string `json:"profileId"`
	ProfileOverrideEnable bool   `json:"profileOverrideEnable"`
	Operation             string `json:"operation"`
	LinkSpeed             int    `json:"linkSpeed"`
	Duplex                int    `json:"duplex"`
	Dot1x                 int    `json:"dot1x"`
	Poe                   int    `json:"poe"`
	BandWidthCtrlType     int    `json:"bandWidthCtrlType"`
	SpanningTreeEnable    bool   `json:"spanningTreeEnable"`
	LoopbackDetectEnable  bool   `json:"loopbackDetectEnable"`
	FlowControlEnable     bool   `json:"flowControlEnable"`
	PortIsolationEnable   bool   `json:"portIsolationEnable"`
	LldpMedEnable         bool   `json:"lldpMedEnable"`
	TopoNotifyEnable      bool   `json:"topoNotifyEnable"`
}

// gatewayPoeUpdate is the simple gateway PoE payload. Gateways take a
// plain boolean and no profile merge.
type gatewayPoeUpdate struct {
	Port      int  `json:"port"`
	PoeEnable bool `json:"poeEnable"`
}

// NewSwitchPortUpdate merges a port record and its bound profile into
// the full override payload, with enable encoded 0/1. Absent profile
// fields default to zero values, matching the controller's own
// defaults. This is the single place the wire convention lives; if a
// firmware revision changes the poe encoding, change it here.
func NewSwitchPortUpdate(port SwitchPort, profile *PortProfile, enable bool) SwitchPortUpdate {
	upd := SwitchPortUpdate{
		Name:                  port.Name,
		ProfileID:             port.ProfileID,
		ProfileOverrideEnable: true,
		Operation:             "switching",
	}
	if enable {
		upd.Poe = 1
	}
	if profile != nil {
		upd.LinkSpeed = intOr(profile.LinkSpeed, 0)
		upd.Duplex = intOr(profile.Duplex, 0)
		upd.Dot1x = intOr(profile.Dot1x, 0)
		upd.BandWidthCtrlType = intOr(profile.BandWidthCtrlType, 0)
		upd.SpanningTreeEnable = boolOr(profile.SpanningTreeEnable, false)
		upd.LoopbackDetectEnable = boolOr(profile.LoopbackDetectEnable, false)
		upd.FlowControlEnable = boolOr(profile.FlowControlEnable, false)
		upd.PortIsolationEnable = boolOr(profile.PortIsolationEnable, false)
		upd.LldpMedEnable = boolOr(profile.LldpMedEnable, false)
		upd.TopoNotifyEnable = boolOr(profile.TopoNotifyEnable, false)
	}
	return upd
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
