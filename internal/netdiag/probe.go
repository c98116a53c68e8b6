// Package netdiag answers one question for failure reporting: does the
// controller host respond to ICMP at all. The verdict separates "host
// is down or unroutable" from "host is up but the service refused us",
// which decides whether the user should check cabling or configuration.
package netdiag

import (
	"context"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Verdict is the reachability conclusion of one probe.
type Verdict string

const (
	// VerdictReachable means the host answered ICMP; the failure is at
	// the service layer.
	VerdictReachable Verdict = "host reachable"
	// VerdictUnreachable means no ICMP reply arrived; the host or the
	// path to it is down.
	VerdictUnreachable Verdict = "host unreachable"
	// VerdictUnknown means the probe itself could not run, typically
	// for lack of raw-socket permission or an unresolvable name.
	VerdictUnknown Verdict = "reachability unknown"
)

const (
	defaultProbeTimeout = 3 * time.Second
	defaultProbeCount   = 2
)

// Prober pings hosts to classify connection failures.
type Prober struct {
	timeout time.Duration
	count   int
	logger  *zap.Logger
}

// NewProber returns a prober with the given per-probe timeout and ping
// count; zero values select defaults.
func NewProber(timeout time.Duration, count int, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if count <= 0 {
		count = defaultProbeCount
	}
	return &Prober{timeout: timeout, count: count, logger: logger.Named("netdiag")}
}

// Probe pings host and returns a verdict. It never returns an error:
// diagnostics must not introduce failures of their own.
func (p *Prober) Probe(ctx context.Context, host string) Verdict {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		p.logger.Debug("probe setup failed", zap.String("host", host), zap.Error(err))
		return VerdictUnknown
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	// Run in a goroutine so the context can interrupt the probe.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			p.logger.Debug("probe failed", zap.String("host", host), zap.Error(runErr))
			return VerdictUnknown
		}
		stats := pinger.Statistics()
		if stats.PacketsRecv > 0 {
			return VerdictReachable
		}
		return VerdictUnreachable

	case <-ctx.Done():
		pinger.Stop()
		return VerdictUnknown
	}
}
