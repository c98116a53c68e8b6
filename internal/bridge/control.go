package bridge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/pkg/models"
)

// ErrNotConnected is returned for mutations attempted while no
// controller session is established.
var ErrNotConnected = errors.New("bridge: not connected")

// SetPortPoe changes PoE on one port, dispatching by the device's kind
// from the directory: gateways take the direct boolean PATCH, switches
// and anything unrecognized take the profile-preserving override path.
// On success the cache is updated optimistically and a confirmation
// re-check is armed; on failure the cache is left alone and refreshed
// from the controller immediately so no phantom state lingers.
//
// The network legs run detached from the caller's cancellation: a
// teardown or released button must not abort a mutation the controller
// may already be applying.
func (b *Bridge) SetPortPoe(ctx context.Context, mac string, port int, enable bool) error {
	canonical, err := models.NormalizeMAC(mac)
	if err != nil {
		return &omada.NotFoundError{Resource: "device", Key: mac}
	}
	if port <= 0 {
		return &omada.NotFoundError{Resource: "port", Key: fmt.Sprintf("%s/%d", canonical, port)}
	}

	client, ok := b.currentClient()
	if !ok {
		return ErrNotConnected
	}
	device, known := b.Device(canonical)
	if !known {
		return &omada.NotFoundError{Resource: "device", Key: canonical}
	}

	opCtx := context.WithoutCancel(ctx)
	var opErr error
	switch device.Kind {
	case models.KindGateway:
		start := b.now()
		opErr = client.SetGatewayPoe(opCtx, canonical, port, enable)
		b.observe("set_gateway_poe", start, opErr)
	default:
		opErr = b.setSwitchPoe(opCtx, client, canonical, port, enable)
	}

	if opErr != nil {
		b.logger.Warn("poe change failed, refreshing authoritative state",
			zap.String("mac", canonical),
			zap.Int("port", port),
			zap.Bool("enable", enable),
			zap.Error(opErr))
		if rErr := b.refreshDevice(opCtx, canonical); rErr != nil {
			b.logger.Debug("post-failure refresh failed", zap.String("mac", canonical), zap.Error(rErr))
		}
		return opErr
	}

	b.logger.Info("poe changed",
		zap.String("mac", canonical),
		zap.Int("port", port),
		zap.Bool("enable", enable))
	b.applyOptimistic(canonical, port, enable)
	b.scheduleConfirm(canonical, port)
	return nil
}

// TogglePoe flips a port relative to its cached state. An unknown key
// reads as off, so toggling it turns the port on.
func (b *Bridge) TogglePoe(ctx context.Context, mac string, port int) error {
	return b.SetPortPoe(ctx, mac, port, !b.PoeEnabled(mac, port))
}

// setSwitchPoe is the profile-preserving path: fetch the port record,
// fetch its bound profile, and submit the complete merged override.
// Sending anything less makes the controller silently revert omitted
// fields to profile defaults even while reporting success.
func (b *Bridge) setSwitchPoe(ctx context.Context, client controllerClient, mac string, port int, enable bool) error {
	start := b.now()
	ports, err := client.SwitchPorts(ctx, mac)
	b.observe("switch_ports", start, err)
	if err != nil {
		return err
	}

	var target *omada.SwitchPort
	for i := range ports {
		if ports[i].Port == port {
			target = &ports[i]
			break
		}
	}
	if target == nil {
		return &omada.NotFoundError{Resource: "port", Key: fmt.Sprintf("%s/%d", mac, port)}
	}

	var profile *omada.PortProfile
	if target.ProfileID != "" {
		start = b.now()
		profile, err = client.PortProfile(ctx, target.ProfileID)
		b.observe("port_profile", start, err)
		if err != nil {
			return err
		}
	}

	upd := omada.NewSwitchPortUpdate(*target, profile, enable)
	start = b.now()
	err = client.UpdateSwitchPort(ctx, mac, port, upd)
	b.observe("update_switch_port", start, err)
	return err
}
