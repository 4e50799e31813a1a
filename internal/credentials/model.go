package credentials

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("credential not found")

// Credential is a stored API credential. Only the hash of the secret is kept.
type Credential struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Label     *string    `json:"label"`
	Hash      string     `json:"-"`
	Alg       string     `json:"alg"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Issued is returned once, when a credential is created. It is the only
// value that ever carries the plaintext secret.
type Issued struct {
	CredentialID int64      `json:"credential_id"`
	Plaintext    string     `json:"plaintext"`
	ExpiresAt    *time.Time `json:"expires_at"`
}
