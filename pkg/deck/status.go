package deck

// Status is the instance state a module reports to the host UI.
type Status string

const (
	// StatusConnecting means a connection attempt is in progress.
	StatusConnecting Status = "connecting"
	// StatusOK means the module is connected and operating normally.
	StatusOK Status = "ok"
	// StatusBadConfig means the instance settings are incomplete or
	// rejected, e.g. missing host or bad credentials.
	StatusBadConfig Status = "bad_config"
	// StatusConnectionFailure means the configured endpoint could not
	// be reached or the session was lost.
	StatusConnectionFailure Status = "connection_failure"
	// StatusUnknownError means an unclassified failure occurred.
	StatusUnknownError Status = "unknown_error"
)

// StatusSink receives instance status transitions. Implementations must
// be safe for concurrent use; modules report status from background
// goroutines.
type StatusSink interface {
	// SetStatus records the current status with a short human-readable
	// detail, which may be empty.
	SetStatus(s Status, detail string)
}
