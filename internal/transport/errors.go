package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// NetworkError is returned when every attempt failed before a response was
// received.
type NetworkError struct {
	Method   string
	URL      string
	Attempts int
	// Err is the failure of the last attempt.
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error contacting API at %s (%d attempts): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseReadError means the status line arrived but the body could not be
// read. The server has seen the request, so it is never retried.
type ResponseReadError struct {
	StatusCode int
	Err        error
}

func (e *ResponseReadError) Error() string {
	return fmt.Sprintf("read response body (status %d): %v", e.StatusCode, e.Err)
}

func (e *ResponseReadError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a transient failure to reach the
// server: refused or reset connections, DNS failures, dial/read/write errors,
// a connection closed before any response, or a transport timeout.
// Cancellation, certificate problems and malformed requests are not.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var readErr *ResponseReadError
	if errors.As(err, &readErr) {
		return false
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return false
	}
	var authorityErr x509.UnknownAuthorityError
	if errors.As(err, &authorityErr) {
		return false
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return false
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
