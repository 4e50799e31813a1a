package credentials

import (
	"context"
	"log/slog"
)

// BootstrapLabel marks the API key issued to the bootstrap administrator.
const BootstrapLabel = "bootstrap"

// EnsureBootstrap issues an API key for userID unless an active bootstrap key
// already exists. The plaintext is logged once and never stored.
func EnsureBootstrap(ctx context.Context, store Store, userID int64, logger *slog.Logger) (bool, error) {
	active, err := LabelActive(ctx, store, userID, BootstrapLabel)
	if err != nil || active {
		return false, err
	}
	label := BootstrapLabel
	c := &Credential{UserID: userID, Label: &label}
	plaintext, err := Issue(c)
	if err != nil {
		return false, err
	}
	if err := store.Create(ctx, c); err != nil {
		return false, err
	}
	logger.Warn("issued bootstrap admin API key; store it now",
		"user_id", userID, "credential_id", c.ID, "api_key", plaintext)
	return true, nil
}
