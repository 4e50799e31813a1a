package api

import "strings"

// Session is an operator's authentication state. The zero value is
// unauthenticated. It lives only in memory; nothing in this package stores
// it anywhere.
type Session struct {
	token string
}

func NewSession(token string) Session {
	return Session{token: strings.TrimSpace(token)}
}

func (s Session) Token() string { return s.token }

func (s Session) Authenticated() bool { return s.token != "" }
