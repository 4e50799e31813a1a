package auth

import "strings"

const RoleAdmin = "admin"

// Account is what authentication needs to know about a user.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Roles        []string
	Active       bool
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Email  string
	Roles  []string
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool { return p.HasRole(RoleAdmin) }
