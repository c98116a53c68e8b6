package bridge

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

// Devices returns a directory snapshot ordered by name, then MAC, for
// stable dropdown rendering.
func (b *Bridge) Devices() []models.Device {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Device, 0, len(b.devices))
	for _, d := range b.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].MAC < out[j].MAC
	})
	return out
}

// Device looks up one directory entry by canonical MAC.
func (b *Bridge) Device(mac string) (models.Device, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[mac]
	return d, ok
}

// refreshDirectory re-lists the site's devices and replaces the
// directory wholesale. Cache entries and confirmation timers of
// devices that disappeared are pruned: the state cache never holds
// ports for a device the directory does not know.
func (b *Bridge) refreshDirectory(ctx context.Context) error {
	client, ok := b.currentClient()
	if !ok {
		return nil
	}

	start := b.now()
	devices, err := client.ListDevices(ctx)
	b.observe("list_devices", start, err)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	previous := b.devices
	b.devices = make(map[string]models.Device, len(devices))
	for _, d := range devices {
		b.devices[d.MAC] = d
	}
	for key := range b.ports {
		if _, known := b.devices[key.mac]; !known {
			delete(b.ports, key)
		}
	}
	for key, entry := range b.confirms {
		if _, known := b.devices[key.mac]; !known {
			entry.timer.Stop()
			delete(b.confirms, key)
		}
	}
	b.metrics.CachedPorts.Set(float64(len(b.ports)))
	changed := directoryChanged(previous, b.devices)
	b.mu.Unlock()

	if changed {
		b.logger.Info("device directory updated", zap.Int("devices", len(devices)))
		if b.bus != nil {
			_ = b.bus.Publish(ctx, deck.Event{
				Topic:   TopicDevices,
				Source:  "bridge",
				Payload: DevicesChanged{Devices: b.Devices()},
			})
		}
	}
	return nil
}

func directoryChanged(old, cur map[string]models.Device) bool {
	if len(old) != len(cur) {
		return true
	}
	for mac, d := range cur {
		prev, ok := old[mac]
		if !ok || prev != d {
			return true
		}
	}
	return false
}
