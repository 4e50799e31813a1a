package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	AlgArgon2id = "argon2id"

	secretBytes = 48
	saltBytes   = 16
	keyBytes    = 32

	argonMemory  = 64 * 1024
	argonTime    = 3
	argonThreads = 4
)

// GenerateSecret returns a URL-safe random secret.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret returns an argon2id hash in PHC string format.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, keyBytes)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Issue generates a secret for a new credential and fills in its hash.
func Issue(c *Credential) (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return "", err
	}
	c.Hash = hash
	c.Alg = AlgArgon2id
	return secret, nil
}
