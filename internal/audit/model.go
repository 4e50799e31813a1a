package audit

import "time"

type EventType string

const (
	EventLoginSuccess      EventType = "login_success"
	EventLoginFailed       EventType = "login_failed"
	EventLoginRateLimited  EventType = "login_rate_limited"
	EventLogout            EventType = "logout"
	EventUserCreated       EventType = "user_created"
	EventUserUpdated       EventType = "user_updated"
	EventUserDeleted       EventType = "user_deleted"
	EventPasswordSet       EventType = "password_set"
	EventCredentialCreated EventType = "credential_created"
	EventCredentialRevoked EventType = "credential_revoked"
)

type Entry struct {
	ID           int64     `json:"id"`
	OccurredAt   time.Time `json:"occurred_at"`
	EventType    EventType `json:"event_type"`
	UserID       *int64    `json:"user_id"`
	CredentialID *int64    `json:"credential_id"`
	IP           *string   `json:"ip"`
	UserAgent    *string   `json:"user_agent"`
	Detail       *string   `json:"detail"`
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)
