package omada

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/pkg/models"
)

// ListDevices fetches the site device listing and normalizes it into
// the shared device model. Records whose MAC cannot be canonicalized
// are skipped with a warning rather than failing the listing.
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	raw, err := c.authed(ctx, http.MethodGet, c.sitePath("/devices"), nil)
	if err != nil {
		return nil, err
	}

	records := extractDeviceArray(raw)
	devices := make([]models.Device, 0, len(records))
	for _, r := range records {
		mac, err := models.NormalizeMAC(r.MAC)
		if err != nil {
			c.logger.Warn("skipping device with unusable mac",
				zap.String("mac", r.MAC), zap.Error(err))
			continue
		}
		devices = append(devices, models.Device{
			MAC:   mac,
			Kind:  models.KindFromTypeTag(r.Type),
			Name:  r.Name,
			Model: r.Model,
		})
	}
	return devices, nil
}

// extractDeviceArray normalizes the envelope variants observed across
// controller hardware and firmware lines: a bare array, an array under
// "result", one under "result.data", and one under "data". Matchers run
// in order; no match yields an empty list, because an unreadable
// listing is indistinguishable from an empty site at this layer. New
// firmware quirks go here and nowhere else.
func extractDeviceArray(raw []byte) []deviceRecord {
	var bare []deviceRecord
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Data   []deviceRecord  `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	if len(envelope.Result) > 0 {
		var direct []deviceRecord
		if err := json.Unmarshal(envelope.Result, &direct); err == nil {
			return direct
		}
		var nested struct {
			Data []deviceRecord `json:"data"`
		}
		if err := json.Unmarshal(envelope.Result, &nested); err == nil && nested.Data != nil {
			return nested.Data
		}
	}
	if envelope.Data != nil {
		return envelope.Data
	}
	return nil
}

// SwitchPorts fetches the port-detail records of one switch. Port
// listings arrive bare on some firmwares and enveloped on others.
func (c *Client) SwitchPorts(ctx context.Context, mac string) ([]SwitchPort, error) {
	path := c.sitePath("/switches/" + url.PathEscape(mac) + "/ports")
	raw, err := c.authed(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var bare []SwitchPort
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	res, err := resultOf("GET ports", raw)
	if err != nil {
		return nil, err
	}
	var ports []SwitchPort
	if len(res) > 0 {
		if err := json.Unmarshal(res, &ports); err != nil {
			var nested struct {
				Data []SwitchPort `json:"data"`
			}
			if nerr := json.Unmarshal(res, &nested); nerr == nil {
				return nested.Data, nil
			}
			return nil, &NetworkError{Op: "GET ports", Err: fmt.Errorf("unexpected port listing shape: %w", err)}
		}
	}
	return ports, nil
}

// PortProfile fetches one LAN port profile by id.
func (c *Client) PortProfile(ctx context.Context, profileID string) (*PortProfile, error) {
	var p PortProfile
	path := c.sitePath("/setting/lan/profiles/" + url.PathEscape(profileID))
	if err := c.getJSON(ctx, path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateSwitchPort submits the complete override payload for one switch
// port.
func (c *Client) UpdateSwitchPort(ctx context.Context, mac string, port int, upd SwitchPortUpdate) error {
	path := c.sitePath(fmt.Sprintf("/switches/%s/ports/%d", url.PathEscape(mac), port))
	return c.send(ctx, http.MethodPatch, path, upd)
}

// SetGatewayPoe flips PoE on one gateway port with the gateway's plain
// boolean payload.
func (c *Client) SetGatewayPoe(ctx context.Context, mac string, port int, enable bool) error {
	path := c.sitePath("/gateways/" + url.PathEscape(mac) + "/poePorts")
	return c.send(ctx, http.MethodPatch, path, gatewayPoeUpdate{Port: port, PoeEnable: enable})
}
