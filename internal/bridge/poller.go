package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/pkg/deck"
	"github.com/soltegren/poedeck/pkg/models"
)

// connectLoop drives the initial connection and, for reachability
// failures only, the reconnect backoff. Once a session is up this loop
// exits for good: transient poll failures never land back here.
func (b *Bridge) connectLoop() {
	defer b.wg.Done()

	for {
		connected, retry := b.connectOnce()
		if connected || !retry {
			return
		}
		select {
		case <-b.runCtx.Done():
			return
		case <-time.After(b.reconnectAfter):
		}
	}
}

func (b *Bridge) connectOnce() (connected, retry bool) {
	b.setStatus(deck.StatusConnecting, "")

	// A fresh client per attempt: failed attempts leave no partial
	// session state behind.
	client := b.newClient(b.params.Settings, b.logger)

	start := b.now()
	err := client.Connect(b.runCtx)
	b.observe("connect", start, err)
	if err != nil {
		return false, b.reportConnectFailure(err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		client.Logout(context.Background())
		return true, false
	}
	b.client = client
	b.mu.Unlock()

	b.logger.Info("controller session established", zap.String("site", client.SiteKey()))
	b.setStatus(deck.StatusOK, "")

	b.wg.Add(2)
	go b.discoveryLoop()
	go b.statusLoop()
	return true, false
}

// reportConnectFailure maps a connect error onto a status and decides
// whether the backoff keeps trying. Credential and certificate problems
// are terminal: retrying cannot fix them, only the user can.
func (b *Bridge) reportConnectFailure(err error) (retry bool) {
	var authErr *omada.AuthError
	var certErr *omada.CertificateError
	var netErr *omada.NetworkError

	switch {
	case errors.As(err, &authErr):
		b.logger.Error("connect failed", zap.Error(err))
		b.setStatus(deck.StatusBadConfig, "authentication failed; check username and password")
		return false

	case errors.As(err, &certErr):
		b.logger.Error("connect failed", zap.Error(err))
		b.setStatus(deck.StatusBadConfig, "certificate not trusted; install a trusted certificate or disable TLS verification")
		return false

	case errors.As(err, &netErr):
		detail := "controller unreachable"
		if b.prober != nil {
			verdict := b.prober.Probe(b.runCtx, bareHost(b.params.Settings.Host))
			detail = fmt.Sprintf("controller unreachable (%s)", verdict)
		}
		b.logger.Warn("connect failed, will retry",
			zap.Duration("retry_in", b.reconnectAfter), zap.Error(err))
		b.setStatus(deck.StatusConnectionFailure, detail)
		return true

	default:
		b.logger.Error("connect failed", zap.Error(err))
		b.setStatus(deck.StatusUnknownError, err.Error())
		return false
	}
}

// discoveryLoop re-lists devices on the slow cycle. The first pass runs
// immediately so actions and dropdowns have targets as soon as the
// session is up.
func (b *Bridge) discoveryLoop() {
	defer b.wg.Done()

	b.runDiscovery()

	ticker := time.NewTicker(b.discoveryEvery)
	defer ticker.Stop()
	for {
		select {
		case <-b.runCtx.Done():
			return
		case <-ticker.C:
			b.runDiscovery()
		}
	}
}

func (b *Bridge) runDiscovery() {
	if err := b.refreshDirectory(b.runCtx); err != nil {
		b.metrics.PollCycles.WithLabelValues("discovery", "error").Inc()
		b.logger.Warn("discovery poll failed", zap.Error(err))
		return
	}
	b.metrics.PollCycles.WithLabelValues("discovery", "ok").Inc()
}

// statusLoop refreshes port state on the fast cycle. Failures are
// tolerated for any number of consecutive passes; an isolated request
// failure is far more common than real session loss, so polls never
// tear the session down.
func (b *Bridge) statusLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.statusEvery)
	defer ticker.Stop()
	for {
		select {
		case <-b.runCtx.Done():
			return
		case <-ticker.C:
			b.runStatusPass()
		}
	}
}

func (b *Bridge) runStatusPass() {
	var failures, authFailures int
	for _, d := range b.Devices() {
		if d.Kind == models.KindGateway {
			continue
		}
		if err := b.refreshDevice(b.runCtx, d.MAC); err != nil {
			failures++
			var authErr *omada.AuthError
			if errors.As(err, &authErr) {
				authFailures++
			}
			b.logger.Warn("status poll failed", zap.String("mac", d.MAC), zap.Error(err))
		}
	}

	outcome := "ok"
	if failures > 0 {
		outcome = "partial"
	}
	b.metrics.PollCycles.WithLabelValues("status", outcome).Inc()

	// Status reflects session health only. A failed re-login means the
	// session is effectively gone; an ordinary request failure does not.
	switch {
	case authFailures > 0:
		b.setStatus(deck.StatusConnectionFailure, "session re-authentication failing; check credentials and controller")
	case failures == 0:
		b.setStatus(deck.StatusOK, "")
	}
}

func bareHost(host string) string {
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return strings.TrimSuffix(host, "/")
}
