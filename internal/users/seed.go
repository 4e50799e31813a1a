package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"usermgmt/internal/auth"
)

type seedFile struct {
	Users []struct {
		Email       string   `yaml:"email"`
		Password    string   `yaml:"password"`
		DisplayName string   `yaml:"display_name"`
		Roles       []string `yaml:"roles"`
		Inactive    bool     `yaml:"inactive"`
	} `yaml:"users"`
}

// SeedFromFile creates the users listed in a YAML file. Users that already
// exist are left untouched, so seeding is idempotent.
func SeedFromFile(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	created := 0
	for _, entry := range sf.Users {
		if entry.Email == "" || entry.Password == "" {
			continue
		}
		if _, err := store.GetByEmail(ctx, entry.Email); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		hash, err := auth.HashPassword(entry.Password)
		if err != nil {
			return created, err
		}
		u := &User{
			Email:        entry.Email,
			PasswordHash: hash,
			IsActive:     !entry.Inactive,
			Roles:        entry.Roles,
		}
		if entry.DisplayName != "" {
			name := entry.DisplayName
			u.DisplayName = &name
		}
		if err := store.Create(ctx, u); err != nil && !errors.Is(err, ErrExists) {
			return created, err
		}
		created++
	}
	return created, nil
}

// EnsureAdmin makes sure the bootstrap administrator exists, is active and
// has the admin role. When password is empty and the account has none, a
// random one is generated and logged once.
func EnsureAdmin(ctx context.Context, store Store, email, password string, logger *slog.Logger) (*User, error) {
	u, err := store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		name := "Admin"
		u = &User{Email: email, DisplayName: &name, IsActive: true, Roles: []string{auth.RoleAdmin}}
		if err := store.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		logger.Info("bootstrap admin created", "email", u.Email, "user_id", u.ID)
	case err != nil:
		return nil, err
	}

	if !u.IsActive || !hasRole(u.Roles, auth.RoleAdmin) {
		active := true
		roles := append(append([]string{}, u.Roles...), auth.RoleAdmin)
		if u, err = store.Update(ctx, u.ID, Patch{IsActive: &active, Roles: &roles}); err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
	}

	if password == "" && u.PasswordHash != "" {
		return u, nil
	}
	generated := password == ""
	if generated {
		if password, err = randomPassword(); err != nil {
			return nil, err
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := store.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return nil, fmt.Errorf("set admin password: %w", err)
	}
	u.PasswordHash = hash
	if generated {
		logger.Warn("generated bootstrap admin password; store it now", "email", u.Email, "password", password)
	}
	return u, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func randomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
