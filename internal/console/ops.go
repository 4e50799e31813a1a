package console

import (
	"context"
	"fmt"
	"strings"

	"usermgmt/internal/api"
	"usermgmt/internal/cli"
)

// Health prints liveness and readiness. A backend that is up but not ready
// yields exit code 1 so scripts can poll it.
func (s *Shell) Health(ctx context.Context) error {
	healthy, err := s.backend.Health(ctx)
	if err != nil {
		return err
	}
	ready, err := s.backend.Ready(ctx)
	if err != nil {
		return err
	}
	if s.json {
		if err := s.writeJSON(map[string]any{"api_base": s.backend.BaseURL(), "healthy": healthy, "ready": ready}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(s.out, "%s: %s, %s\n", s.backend.BaseURL(), okWord(healthy, "healthy", "unhealthy"), okWord(ready, "ready", "not ready"))
	}
	if !healthy || !ready {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// Login validates both fields locally, then exchanges them for a session.
func (s *Shell) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if err := required("username", username); err != nil {
		return err
	}
	if err := required("password", password); err != nil {
		return err
	}

	sess, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s.session = sess
	s.user = username
	fmt.Fprintf(s.out, "logged in as %s\n", username)
	return nil
}

// Logout ends the session locally whatever the backend says.
func (s *Shell) Logout(ctx context.Context) error {
	if !s.session.Authenticated() {
		fmt.Fprintln(s.out, "not logged in")
		return nil
	}
	if err := s.backend.Logout(ctx, s.session); err != nil {
		s.logger.Warn("logout call failed, clearing session anyway", "err", err)
	}
	s.clearSession()
	fmt.Fprintln(s.out, "logged out")
	return nil
}

func (s *Shell) Status() error {
	if s.json {
		return s.writeJSON(map[string]any{
			"api_base":      s.backend.BaseURL(),
			"authenticated": s.session.Authenticated(),
			"user":          s.user,
		})
	}
	switch {
	case !s.session.Authenticated():
		fmt.Fprintf(s.out, "not logged in (%s)\n", s.backend.BaseURL())
	case s.user != "":
		fmt.Fprintf(s.out, "logged in as %s (%s)\n", s.user, s.backend.BaseURL())
	default:
		fmt.Fprintf(s.out, "authenticated with a supplied token (%s)\n", s.backend.BaseURL())
	}
	return nil
}

func (s *Shell) ListUsers(ctx context.Context, limit, offset int) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	users, err := s.backend.ListUsers(ctx, s.session, limit, offset)
	if err := s.observe(err); err != nil {
		return err
	}
	if s.json {
		return s.writeJSON(users)
	}
	s.renderUsers(users)
	return nil
}

func (s *Shell) ShowUser(ctx context.Context, id int64) error {
	if err := positiveID("id", id); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	user, err := s.backend.GetUser(ctx, s.session, id)
	if err := s.observe(err); err != nil {
		return err
	}
	return s.emitUser(user)
}

// CreateUser takes roles as comma-separated free text.
func (s *Shell) CreateUser(ctx context.Context, email, displayName, roles string) error {
	email = strings.TrimSpace(email)
	if err := required("email", email); err != nil {
		return err
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Message: "must be an email address"}
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	in := api.NewUser{Email: email, DisplayName: strings.TrimSpace(displayName)}
	if roles != "" {
		in.Roles = api.ParseRoles(roles)
	}
	user, err := s.backend.CreateUser(ctx, s.session, in)
	if err := s.observe(err); err != nil {
		return err
	}
	return s.emitUser(user)
}

func (s *Shell) UpdateUser(ctx context.Context, id int64, patch api.UserPatch) error {
	if err := positiveID("id", id); err != nil {
		return err
	}
	if patch.Empty() {
		return &ValidationError{Field: "update", Message: "nothing to change"}
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	user, err := s.backend.UpdateUser(ctx, s.session, id, patch)
	if err := s.observe(err); err != nil {
		return err
	}
	return s.emitUser(user)
}

func (s *Shell) DeleteUser(ctx context.Context, id int64) error {
	if err := positiveID("id", id); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	if err := s.observe(s.backend.DeleteUser(ctx, s.session, id)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "user %d deleted\n", id)
	return nil
}

func (s *Shell) SetPassword(ctx context.Context, id int64, password string) error {
	if err := positiveID("id", id); err != nil {
		return err
	}
	if err := required("password", password); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	if err := s.observe(s.backend.SetPassword(ctx, s.session, id, password)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "password updated for user %d\n", id)
	return nil
}

// ListCredentials lists credentials for userID, or all of them when it is 0.
func (s *Shell) ListCredentials(ctx context.Context, userID int64) error {
	if userID < 0 {
		return &ValidationError{Field: "user", Message: "must not be negative"}
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	creds, err := s.backend.ListCredentials(ctx, s.session, userID)
	if err := s.observe(err); err != nil {
		return err
	}
	if s.json {
		return s.writeJSON(creds)
	}
	s.renderCredentials(creds)
	return nil
}

// CreateCredential prints the secret once. Nothing keeps a copy.
func (s *Shell) CreateCredential(ctx context.Context, userID int64, label string) error {
	if err := positiveID("user", userID); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	created, err := s.backend.CreateCredential(ctx, s.session, userID, strings.TrimSpace(label))
	if err := s.observe(err); err != nil {
		return err
	}
	if s.json {
		return s.writeJSON(created)
	}
	fmt.Fprintf(s.out, "credential %d created for user %d\n", created.ID, userID)
	if created.ExpiresAt != nil {
		fmt.Fprintf(s.out, "expires:   %s\n", formatTime(*created.ExpiresAt))
	}
	fmt.Fprintf(s.out, "plaintext: %s\n", created.Plaintext)
	fmt.Fprintln(s.out, "store it now; it cannot be retrieved again")
	return nil
}

func (s *Shell) RevokeCredential(ctx context.Context, id int64) error {
	if err := positiveID("id", id); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	if err := s.observe(s.backend.RevokeCredential(ctx, s.session, id)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "credential %d revoked\n", id)
	return nil
}

// Audit lists entries in server order, keeping those whose event type
// contains filter (case-insensitive).
func (s *Shell) Audit(ctx context.Context, limit int, filter string) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	entries, err := s.backend.ListAudit(ctx, s.session, limit)
	if err := s.observe(err); err != nil {
		return err
	}
	entries = filterAudit(entries, filter)
	if s.json {
		return s.writeJSON(entries)
	}
	s.renderAudit(entries)
	return nil
}

func filterAudit(entries []api.AuditEntry, filter string) []api.AuditEntry {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return entries
	}
	out := make([]api.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.EventType), filter) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Shell) Chat(ctx context.Context, model, prompt string) error {
	if err := required("prompt", prompt); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	if model == "" {
		model = s.chatModel
	}
	text, err := s.backend.Chat(ctx, s.session, model, prompt)
	if err := s.observe(err); err != nil {
		return err
	}
	if s.json {
		return s.writeJSON(map[string]string{"model": model, "response": text})
	}
	fmt.Fprintln(s.out, text)
	return nil
}

// Embed prints the vector's dimension, or the vector itself with --json.
func (s *Shell) Embed(ctx context.Context, model, input string) error {
	if err := required("input", input); err != nil {
		return err
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	if model == "" {
		model = s.embedModel
	}
	vec, err := s.backend.Embeddings(ctx, s.session, model, input)
	if err := s.observe(err); err != nil {
		return err
	}
	if s.json {
		return s.writeJSON(map[string]any{"model": model, "embedding": vec})
	}
	fmt.Fprintf(s.out, "embedding dimension: %d\n", len(vec))
	return nil
}

func okWord(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
