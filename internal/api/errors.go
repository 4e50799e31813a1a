package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"usermgmt/internal/transport"
)

// ErrInvalidCredentials is returned by Login when the backend answers 401.
var ErrInvalidCredentials = errors.New("invalid credentials")

// StatusError is a delivered response with a non-2xx status.
type StatusError struct {
	Op         Operation
	StatusCode int
	// Detail is the server-supplied message, if the error body had one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed: %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
}

// AuthRejected reports whether the backend refused the bearer token or the
// caller's authority (401 or 403).
func (e *StatusError) AuthRejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ParseError is a 2xx response whose body could not be turned into the
// expected record.
type ParseError struct {
	Op  Operation
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err came from failing to reach the backend
// after all retries.
func IsNetworkError(err error) bool {
	var netErr *transport.NetworkError
	return errors.As(err, &netErr)
}

// IsUnauthorized reports whether err is a 401 from a protected operation.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether err is a 403.
func IsForbidden(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusForbidden
}

func newStatusError(op Operation, resp *transport.Response) *StatusError {
	return &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Detail:     errorDetail(resp.Body),
	}
}

// errorDetail pulls a message out of an error body. FastAPI-style
// {"detail": ...} and {"error": "..."} shapes are understood; anything else,
// including a body that is not JSON, yields "".
func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{payload.Detail, payload.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err == nil {
			return compact.String()
		}
	}
	return strings.TrimSpace(payload.Message)
}
