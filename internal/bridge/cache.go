package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

// PoeEnabled reports the cached PoE state of one port. This is the
// feedback query path: a pure map read, no I/O ever, and unknown
// devices or ports simply answer false because the evaluators upstream
// must always get an answer.
func (b *Bridge) PoeEnabled(mac string, port int) bool {
	canonical, err := models.NormalizeMAC(mac)
	if err != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.ports[portKey{mac: canonical, port: port}]
	return ok && state.poe
}

// LastSync returns when the cache last absorbed an authoritative
// refresh; zero before the first one.
func (b *Bridge) LastSync() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSync
}

// applyOptimistic records the desired state immediately, ahead of
// hardware confirmation. PoE relays can take double-digit seconds to
// settle; feedbacks show the requested state until the confirmation
// re-check or a status poll overwrites it with the truth. No entry is
// written for devices the directory does not know.
func (b *Bridge) applyOptimistic(mac string, port int, enabled bool) {
	key := portKey{mac: mac, port: port}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if _, known := b.devices[mac]; !known {
		b.mu.Unlock()
		return
	}
	state := b.ports[key]
	state.poe = enabled
	state.optimistic = true
	b.ports[key] = state
	b.metrics.CachedPorts.Set(float64(len(b.ports)))
	b.mu.Unlock()

	b.publishPortStates(mac)
}

// scheduleConfirm arms the one-shot authoritative re-check for a key,
// superseding any timer already pending for it. The generation number
// lets a superseded or cancelled timer recognize itself and do nothing
// when it fires anyway.
func (b *Bridge) scheduleConfirm(mac string, port int) {
	key := portKey{mac: mac, port: port}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if prev, ok := b.confirms[key]; ok {
		prev.timer.Stop()
	}
	b.confirmGen++
	gen := b.confirmGen
	timer := time.AfterFunc(b.confirmAfter, func() {
		b.confirmFire(key, gen)
	})
	b.confirms[key] = confirmEntry{gen: gen, timer: timer}
	b.mu.Unlock()
}

// confirmFire runs when a confirmation timer elapses. Only the timer
// still registered for the key acts; earlier generations lost a
// supersession race and bail out.
func (b *Bridge) confirmFire(key portKey, gen uint64) {
	b.mu.Lock()
	entry, ok := b.confirms[key]
	if !ok || entry.gen != gen || b.closed {
		b.mu.Unlock()
		return
	}
	delete(b.confirms, key)
	var expected *bool
	if state, cached := b.ports[key]; cached && state.optimistic {
		v := state.poe
		expected = &v
	}
	b.mu.Unlock()

	if err := b.refreshDevice(b.runCtx, key.mac); err != nil {
		b.logger.Warn("confirmation refresh failed",
			zap.String("mac", key.mac), zap.Int("port", key.port), zap.Error(err))
		return
	}

	if expected == nil {
		return
	}
	b.mu.Lock()
	state, cached := b.ports[key]
	b.mu.Unlock()
	if cached && state.poe != *expected {
		b.metrics.ConfirmMismatches.Inc()
		b.logger.Warn("hardware settled differently than requested",
			zap.String("mac", key.mac),
			zap.Int("port", key.port),
			zap.Bool("requested", *expected),
			zap.Bool("actual", state.poe))
	}
}

// refreshDevice replaces a device's cached port entries with the
// controller's current truth. Both the fast status poll and the
// confirmation timers land here; they may race for the same device and
// last-write-wins is fine because both read the same endpoint.
// Gateways have no port-detail endpoint, so their optimistic entries
// stand until the next mutation.
func (b *Bridge) refreshDevice(ctx context.Context, mac string) error {
	device, known := b.Device(mac)
	if !known {
		return nil
	}
	if device.Kind == models.KindGateway {
		return nil
	}
	client, ok := b.currentClient()
	if !ok {
		return nil
	}

	start := b.now()
	ports, err := client.SwitchPorts(ctx, mac)
	b.observe("switch_ports", start, err)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	if _, still := b.devices[mac]; !still {
		// Removed by a discovery pass while we were fetching.
		b.mu.Unlock()
		return nil
	}
	for key := range b.ports {
		if key.mac == mac {
			delete(b.ports, key)
		}
	}
	for _, p := range ports {
		b.ports[portKey{mac: mac, port: p.Port}] = portState{
			poe:       p.Status.Poe,
			profileID: p.ProfileID,
		}
	}
	b.lastSync = b.now()
	b.metrics.CachedPorts.Set(float64(len(b.ports)))
	b.mu.Unlock()

	b.publishPortStates(mac)
	return nil
}

func (b *Bridge) publishPortStates(mac string) {
	if b.bus == nil {
		return
	}
	_ = b.bus.Publish(b.runCtx, deck.Event{
		Topic:   TopicPortStates,
		Source:  "bridge",
		Payload: PortStatesRefreshed{MAC: mac},
	})
}
