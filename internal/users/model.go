package users

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("user exists")
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"display_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Patch is a partial update. Nil fields are left unchanged; a non-nil Roles
// replaces the whole role set.
type Patch struct {
	DisplayName *string   `json:"display_name"`
	IsActive    *bool     `json:"is_active"`
	Roles       *[]string `json:"roles"`
}

func (p Patch) apply(u *User) {
	if p.DisplayName != nil {
		name := *p.DisplayName
		u.DisplayName = &name
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Roles != nil {
		u.Roles = normalizeRoles(*p.Roles)
	}
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// normalizeEmail is applied on every write and lookup so uniqueness is
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeRoles trims, drops empties and duplicates, and keeps order. The
// result is never nil.
func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
