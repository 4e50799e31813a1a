// Package httpjson holds the JSON request and response helpers shared by the
// backend handlers. Error bodies are always {"detail": "<message>"}.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// MaxBodySize bounds request bodies accepted by Decode.
const MaxBodySize = 1 << 20

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Error(w http.ResponseWriter, status int, detail string) {
	Write(w, status, map[string]string{"detail": detail})
}

// Decode reads one JSON object from the request body into dst. A missing or
// malformed body is an error suitable for a 422 response.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// PathID parses the named wildcard of a Go 1.22 pattern as a positive id.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// QueryInt returns the integer query parameter key, def when it is absent,
// and an error when it is present but outside [min, max].
func QueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

// ClientIP is the host part of the peer address. Forwarding headers are not
// consulted here; a trusted proxy setup rewrites RemoteAddr first with
// ForwardedFor.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// ForwardedFor returns the original client address reported by a proxy:
// the first X-Forwarded-For entry, else X-Real-IP. Values that do not parse
// as an IP are ignored. Only call it for requests from a trusted proxy.
func ForwardedFor(r *http.Request) (string, bool) {
	candidate := ""
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		candidate = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else {
		candidate = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}
	if net.ParseIP(candidate) == nil {
		return "", false
	}
	return candidate, true
}
