// Package console is the operator-facing shell over the api client. It owns
// the session, validates input before anything goes on the wire, decides
// what an auth rejection does to the session, and renders results as
// tables or JSON.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"usermgmt/internal/api"
)

var (
	// ErrNotLoggedIn is returned by protected commands when there is no
	// session.
	ErrNotLoggedIn = errors.New("not logged in; run login first")
	// ErrSessionExpired wraps a 401 on a protected call. The session has
	// already been cleared when it is returned.
	ErrSessionExpired = errors.New("session expired, log in again")
)

// ValidationError is an input problem caught before any request was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "required"}
	}
	return nil
}

func positiveID(field string, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return nil
}

// Backend is the part of *api.Client the shell drives.
type Backend interface {
	BaseURL() string
	Health(ctx context.Context) (bool, error)
	Ready(ctx context.Context) (bool, error)
	Login(ctx context.Context, username, password string) (api.Session, error)
	Logout(ctx context.Context, sess api.Session) error
	ListUsers(ctx context.Context, sess api.Session, limit, offset int) ([]api.User, error)
	GetUser(ctx context.Context, sess api.Session, id int64) (api.User, error)
	CreateUser(ctx context.Context, sess api.Session, in api.NewUser) (api.User, error)
	UpdateUser(ctx context.Context, sess api.Session, id int64, patch api.UserPatch) (api.User, error)
	DeleteUser(ctx context.Context, sess api.Session, id int64) error
	SetPassword(ctx context.Context, sess api.Session, id int64, password string) error
	ListCredentials(ctx context.Context, sess api.Session, userID int64) ([]api.Credential, error)
	CreateCredential(ctx context.Context, sess api.Session, userID int64, label string) (api.CreatedCredential, error)
	RevokeCredential(ctx context.Context, sess api.Session, id int64) error
	ListAudit(ctx context.Context, sess api.Session, limit int) ([]api.AuditEntry, error)
	Chat(ctx context.Context, sess api.Session, model, prompt string) (string, error)
	Embeddings(ctx context.Context, sess api.Session, model, input string) ([]float64, error)
}

type Options struct {
	Backend Backend
	// Session seeds the shell, e.g. from --token.
	Session api.Session
	Out     io.Writer
	Logger  *slog.Logger
	// JSON makes every command print JSON instead of tables.
	JSON bool
	// Prompter reads hidden input such as passwords. Defaults to the
	// terminal on stdin.
	Prompter Prompter
	// DefaultChatModel and DefaultEmbedModel are used when a command
	// omits --model.
	DefaultChatModel  string
	DefaultEmbedModel string
}

// Shell holds one operator session. It is not safe for concurrent use; the
// REPL drives it one command at a time.
type Shell struct {
	backend  Backend
	session  api.Session
	user     string
	out      io.Writer
	logger   *slog.Logger
	json     bool
	prompter Prompter

	chatModel  string
	embedModel string
}

func New(opts Options) *Shell {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prompter := opts.Prompter
	if prompter == nil {
		prompter = TerminalPrompter{In: os.Stdin, Out: os.Stderr}
	}
	chatModel := opts.DefaultChatModel
	if chatModel == "" {
		chatModel = "llama3"
	}
	embedModel := opts.DefaultEmbedModel
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	return &Shell{
		backend:    opts.Backend,
		session:    opts.Session,
		out:        out,
		logger:     logger,
		json:       opts.JSON,
		prompter:   prompter,
		chatModel:  chatModel,
		embedModel: embedModel,
	}
}

// Session returns the current session.
func (s *Shell) Session() api.Session { return s.session }

// SetJSON switches the output format.
func (s *Shell) SetJSON(on bool) { s.json = on }

func (s *Shell) requireSession() error {
	if !s.session.Authenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

// observe applies a protected call's outcome to the session. A 401 ends the
// session; a 403 leaves it alone since the token is still valid.
func (s *Shell) observe(err error) error {
	if err == nil {
		return nil
	}
	if api.IsUnauthorized(err) {
		s.logger.Warn("session rejected by backend, clearing it", "err", err)
		s.clearSession()
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return err
}

func (s *Shell) clearSession() {
	s.session = api.Session{}
	s.user = ""
}

// Describe turns an error into the line shown to the operator.
func Describe(err error) string {
	var validation *ValidationError
	var statusErr *api.StatusError
	switch {
	case errors.Is(err, api.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.As(err, &validation):
		return "invalid input: " + validation.Error()
	case api.IsNetworkError(err):
		return "cannot reach backend: " + err.Error()
	case errors.As(err, &statusErr) && statusErr.StatusCode == 403 && !errors.Is(err, ErrSessionExpired):
		return "permission denied: " + err.Error()
	default:
		return err.Error()
	}
}
