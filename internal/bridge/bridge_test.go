package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/pkg/deck"
)

func TestStartConnectsAndPolls(t *testing.T) {
	mock := newMockClient().
		withDevices(switchDevice(testMAC)).
		withPorts(testMAC, omada.SwitchPort{Port: 8, Status: omada.PortStatus{Poe: true}})
	b, rec, bus := newTestBridge(t, mock)

	b.Start()

	eventually(t, time.Second, "bridge should reach ok", func() bool {
		return rec.last() == deck.StatusOK
	})
	eventually(t, time.Second, "discovery should populate the directory", func() bool {
		_, ok := b.Device(testMAC)
		return ok
	})
	eventually(t, time.Second, "status poll should fill the cache", func() bool {
		return b.PoeEnabled(testMAC, 8)
	})

	if len(bus.EventsFor(TopicDevices)) == 0 {
		t.Error("expected a device directory event")
	}
	if len(bus.EventsFor(TopicStatus)) < 2 {
		t.Error("expected connecting and ok status events")
	}
}

func TestStartTwiceRunsOneLoop(t *testing.T) {
	mock := newMockClient()
	b, rec, _ := newTestBridge(t, mock)

	b.Start()
	b.Start()

	eventually(t, time.Second, "bridge should reach ok", func() bool {
		return rec.last() == deck.StatusOK
	})
	if got := mock.connects(); got != 1 {
		t.Errorf("connect attempts = %d, want 1", got)
	}
}

func TestConnectRetriesAfterNetworkFailure(t *testing.T) {
	mock := newMockClient().withDevices(switchDevice(testMAC))
	mock.setConnectErr(&omada.NetworkError{Op: "GET /api/info", Err: errors.New("connection refused")})
	b, rec, _ := newTestBridge(t, mock)

	b.Start()

	eventually(t, time.Second, "failure status should surface", func() bool {
		return rec.saw(deck.StatusConnectionFailure)
	})
	eventually(t, time.Second, "connect should be retried on the backoff", func() bool {
		return mock.connects() >= 2
	})

	mock.setConnectErr(nil)
	eventually(t, time.Second, "bridge should recover once the controller answers", func() bool {
		return rec.last() == deck.StatusOK
	})
}

func TestAuthFailureDoesNotRetry(t *testing.T) {
	mock := newMockClient()
	mock.setConnectErr(&omada.AuthError{Op: "login", Err: errors.New("bad credentials")})
	b, rec, _ := newTestBridge(t, mock)

	b.Start()

	eventually(t, time.Second, "bad credentials should surface as bad_config", func() bool {
		return rec.last() == deck.StatusBadConfig
	})
	time.Sleep(4 * b.reconnectAfter)
	if got := mock.connects(); got != 1 {
		t.Errorf("connect attempts = %d, want 1 (credential failures are terminal)", got)
	}
	if !strings.Contains(rec.lastDetail(), "username and password") {
		t.Errorf("detail = %q, want a credential hint", rec.lastDetail())
	}
}

func TestCertificateFailureDoesNotRetry(t *testing.T) {
	mock := newMockClient()
	mock.setConnectErr(&omada.CertificateError{Host: "controller.test", Err: errors.New("unknown authority")})
	b, rec, _ := newTestBridge(t, mock)

	b.Start()

	eventually(t, time.Second, "certificate trouble should surface as bad_config", func() bool {
		return rec.last() == deck.StatusBadConfig
	})
	time.Sleep(4 * b.reconnectAfter)
	if got := mock.connects(); got != 1 {
		t.Errorf("connect attempts = %d, want 1 (certificate failures are terminal)", got)
	}
	if !strings.Contains(rec.lastDetail(), "certificate") {
		t.Errorf("detail = %q, want a certificate hint", rec.lastDetail())
	}
}

func TestUnexpectedConnectErrorIsTerminal(t *testing.T) {
	mock := newMockClient()
	mock.setConnectErr(errors.New("short read"))
	b, rec, _ := newTestBridge(t, mock)

	b.Start()

	eventually(t, time.Second, "unclassified errors should surface as unknown", func() bool {
		return rec.last() == deck.StatusUnknownError
	})
	time.Sleep(4 * b.reconnectAfter)
	if got := mock.connects(); got != 1 {
		t.Errorf("connect attempts = %d, want 1", got)
	}
}

func TestTeardownStopsLoopsAndLogsOut(t *testing.T) {
	mock := newMockClient().
		withDevices(switchDevice(testMAC)).
		withPorts(testMAC, omada.SwitchPort{Port: 8})
	b, rec, _ := newTestBridge(t, mock)

	b.Start()
	eventually(t, time.Second, "bridge should reach ok", func() bool {
		return rec.last() == deck.StatusOK
	})

	b.Teardown()

	if got := mock.logouts(); got != 1 {
		t.Errorf("logouts = %d, want 1", got)
	}
	if err := b.SetPortPoe(context.Background(), testMAC, 8, true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("mutation after teardown = %v, want ErrNotConnected", err)
	}

	traffic := mock.portFetches() + mock.deviceListings()
	time.Sleep(4 * b.statusEvery)
	if got := mock.portFetches() + mock.deviceListings(); got != traffic {
		t.Errorf("controller traffic continued after teardown: %d -> %d", traffic, got)
	}

	b.Teardown()
	if got := mock.logouts(); got != 1 {
		t.Errorf("second teardown logged out again: logouts = %d", got)
	}
}

func TestStatusPassReportsSessionLoss(t *testing.T) {
	mock := newMockClient().
		withDevices(switchDevice(testMAC)).
		withPorts(testMAC, omada.SwitchPort{Port: 1})
	b, rec, _ := newTestBridge(t, mock)

	b.Start()
	eventually(t, time.Second, "bridge should reach ok", func() bool {
		_, ok := b.Device(testMAC)
		return ok && rec.last() == deck.StatusOK
	})

	// Re-login failing under the poll means the session is gone.
	mock.setPortsErr(&omada.AuthError{Op: "re-login", Err: errors.New("invalid credentials")})
	eventually(t, time.Second, "session loss should surface", func() bool {
		return rec.last() == deck.StatusConnectionFailure
	})
	if !strings.Contains(rec.lastDetail(), "re-authentication") {
		t.Errorf("detail = %q, want a re-authentication hint", rec.lastDetail())
	}

	// A clean pass restores ok without reconnecting.
	connectsBefore := mock.connects()
	mock.setPortsErr(nil)
	eventually(t, time.Second, "clean pass should restore ok", func() bool {
		return rec.last() == deck.StatusOK
	})
	if got := mock.connects(); got != connectsBefore {
		t.Errorf("connects = %d, want %d (polls never reconnect)", got, connectsBefore)
	}
}

func TestOrdinaryPollFailureKeepsStatus(t *testing.T) {
	mock := newMockClient().
		withDevices(switchDevice(testMAC)).
		withPorts(testMAC, omada.SwitchPort{Port: 1})
	b, rec, _ := newTestBridge(t, mock)

	b.Start()
	eventually(t, time.Second, "bridge should reach ok", func() bool {
		_, ok := b.Device(testMAC)
		return ok && rec.last() == deck.StatusOK
	})

	mock.setPortsErr(&omada.NetworkError{Op: "GET ports", Err: errors.New("timeout")})
	time.Sleep(4 * b.statusEvery)
	if got := rec.last(); got != deck.StatusOK {
		t.Errorf("status after transient poll failures = %q, want ok", got)
	}
	if got := mock.connects(); got != 1 {
		t.Errorf("connects = %d, want 1 (transient failures never tear the session down)", got)
	}
}

func TestBareHost(t *testing.T) {
	tests := []struct{ in, want string }{
		{"controller.test", "controller.test"},
		{"https://controller.test", "controller.test"},
		{"http://controller.test/", "controller.test"},
	}
	for _, tt := range tests {
		if got := bareHost(tt.in); got != tt.want {
			t.Errorf("bareHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
