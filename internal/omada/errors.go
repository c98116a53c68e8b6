package omada

import (
	"errors"
	"fmt"
)

// errUnauthorized marks a single unauthorized response inside the client.
// It never escapes: the retry layer converts a repeat into *AuthError.
var errUnauthorized = errors.New("unauthorized")

// Controller application codes that mean the session token is no longer
// valid and a re-login is worth attempting.
var unauthorizedCodes = map[int]bool{
	-1200:  true,
	-30109: true,
}

// AuthError means the controller rejected the credentials or the session
// could not be re-established. Terminal until the user reconfigures.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("omada: authentication failed during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("omada: authentication failed during %s", e.Op)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CertificateError means TLS certificate verification failed. Terminal
// until the user installs a trusted certificate or disables verification.
type CertificateError struct {
	Host string
	Err  error
}

func (e *CertificateError) Error() string {
	return fmt.Sprintf("omada: certificate verification failed for %s: %v", e.Host, e.Err)
}

func (e *CertificateError) Unwrap() error { return e.Err }

// NetworkError means the controller could not be reached or did not
// answer sensibly. Transient; drives the reconnect cycle on connect.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("omada: %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError means a device, port, or controller resource is absent
// from current state. Logged by callers; never mutates the cache.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("omada: %s %q not found", e.Resource, e.Key)
}

// ValidationError means the controller returned a non-zero application
// code, typically rejecting a mutation payload, even though the HTTP
// exchange itself succeeded.
type ValidationError struct {
	Op   string
	Code int
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("omada: %s rejected with code %d: %s", e.Op, e.Code, e.Msg)
}
