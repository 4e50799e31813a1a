package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	Roles       []string  `json:"roles"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

func (u User) validate() error {
	if u.ID <= 0 {
		return errors.New("user record without id")
	}
	if u.Email == "" {
		return errors.New("user record without email")
	}
	return nil
}

// NewUser is the body of a create-user call.
type NewUser struct {
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// UserPatch is a partial update. Nil fields are left out of the request.
// A non-nil, empty Roles clears every role.
type UserPatch struct {
	IsActive    *bool
	Roles       []string
	DisplayName *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.IsActive == nil && p.Roles == nil && p.DisplayName == nil
}

func (p UserPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 3)
	if p.IsActive != nil {
		body["is_active"] = *p.IsActive
	}
	if p.Roles != nil {
		body["roles"] = p.Roles
	}
	if p.DisplayName != nil {
		body["display_name"] = *p.DisplayName
	}
	return json.Marshal(body)
}

// Credential is a stored API credential. The secret is never part of it.
type Credential struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Label     *string    `json:"label"`
	Alg       string     `json:"alg,omitempty"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *Timestamp `json:"revoked_at"`
	CreatedAt Timestamp  `json:"created_at"`
	ExpiresAt *Timestamp `json:"expires_at"`
}

// CreatedCredential is the one response that carries the plaintext secret.
type CreatedCredential struct {
	ID        int64      `json:"credential_id"`
	Plaintext string     `json:"plaintext"`
	ExpiresAt *Timestamp `json:"expires_at"`
}

type AuditEntry struct {
	ID           int64     `json:"id"`
	OccurredAt   Timestamp `json:"occurred_at"`
	EventType    string    `json:"event_type"`
	UserID       *int64    `json:"user_id"`
	CredentialID *int64    `json:"credential_id"`
	IP           *string   `json:"ip"`
	UserAgent    *string   `json:"user_agent"`
	Detail       *string   `json:"detail"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC 3339 and zone-less ISO 8601 times. Zone-less values
// are taken as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
