package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"usermgmt/internal/httpjson"
)

// Recorder writes audit entries on behalf of handlers. A failed write is
// logged and never fails the request being audited.
type Recorder struct {
	Store  Store
	Logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{Store: store, Logger: logger}
}

// Record stores e. Nil receivers are allowed so handlers can run without an
// audit trail in tests.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.Store == nil {
		return
	}
	if err := r.Store.Insert(ctx, &e); err != nil {
		r.Logger.Error("insert audit entry", "event_type", e.EventType, "err", err)
	}
}

// Column widths of audit_log.
const (
	maxIPLen        = 45
	maxUserAgentLen = 256
)

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// FromRequest starts an entry carrying the caller's address and user agent.
func FromRequest(r *http.Request, eventType EventType) Entry {
	e := Entry{EventType: eventType}
	if ip := truncate(httpjson.ClientIP(r), maxIPLen); ip != "" {
		e.IP = &ip
	}
	if ua := truncate(strings.TrimSpace(r.UserAgent()), maxUserAgentLen); ua != "" {
		e.UserAgent = &ua
	}
	return e
}

// WithUser sets the user the entry is about.
func (e Entry) WithUser(id int64) Entry {
	e.UserID = &id
	return e
}

func (e Entry) WithCredential(id int64) Entry {
	e.CredentialID = &id
	return e
}

func (e Entry) WithDetail(detail string) Entry {
	if detail != "" {
		e.Detail = &detail
	}
	return e
}
