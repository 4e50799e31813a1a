package console

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"usermgmt/internal/api"
	"usermgmt/internal/cli"
)

// Commands returns the command tree bound to s. Both the one-shot binary
// and the REPL dispatch through it.
func (s *Shell) Commands(ctx context.Context) []*cli.Command {
	return []*cli.Command{
		{
			Name:    "health",
			Summary: "Check backend liveness and readiness",
			Run: func(args []string) error {
				return s.Health(ctx)
			},
		},
		s.loginCommand(ctx),
		{
			Name:    "logout",
			Summary: "End the current session",
			Run: func(args []string) error {
				return s.Logout(ctx)
			},
		},
		{
			Name:    "status",
			Summary: "Show the session state",
			Run: func(args []string) error {
				return s.Status()
			},
		},
		{
			Name:    "users",
			Summary: "Manage user accounts",
			Subcommands: []*cli.Command{
				s.listUsersCommand(ctx),
				{
					Name:    "show",
					Summary: "Show one user",
					Usage:   "users show <id>",
					Run: func(args []string) error {
						id, err := idArg(args, "id")
						if err != nil {
							return err
						}
						return s.ShowUser(ctx, id)
					},
				},
				s.createUserCommand(ctx),
				s.updateUserCommand(ctx),
				{
					Name:    "delete",
					Summary: "Delete a user",
					Usage:   "users delete <id>",
					Run: func(args []string) error {
						id, err := idArg(args, "id")
						if err != nil {
							return err
						}
						return s.DeleteUser(ctx, id)
					},
				},
				s.setPasswordCommand(ctx),
			},
		},
		{
			Name:    "credentials",
			Summary: "Issue, list and revoke API credentials",
			Subcommands: []*cli.Command{
				s.listCredentialsCommand(ctx),
				s.createCredentialCommand(ctx),
				{
					Name:    "revoke",
					Summary: "Revoke a credential",
					Usage:   "credentials revoke <id>",
					Run: func(args []string) error {
						id, err := idArg(args, "id")
						if err != nil {
							return err
						}
						return s.RevokeCredential(ctx, id)
					},
				},
			},
		},
		s.auditCommand(ctx),
		s.chatCommand(ctx),
		s.embedCommand(ctx),
	}
}

func (s *Shell) loginCommand(ctx context.Context) *cli.Command {
	var password string
	return &cli.Command{
		Name:    "login",
		Summary: "Log in and keep the session",
		Usage:   "login <username> [--password <password>]",
		Description: "Log in with a username (email) and password. Without --password the\n" +
			"password is read from the terminal with echo disabled.",
		Examples: []cli.Example{
			{Description: "Prompt for the password", Command: "login admin@example.com"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
			fs.StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
			return fs
		},
		Run: func(args []string) error {
			username := ""
			if len(args) > 0 {
				username = args[0]
			}
			if strings.TrimSpace(username) != "" && password == "" {
				secret, err := s.prompter.ReadSecret("Password: ")
				if err != nil {
					return err
				}
				password = secret
			}
			return s.Login(ctx, username, password)
		},
	}
}

func (s *Shell) listUsersCommand(ctx context.Context) *cli.Command {
	var limit, offset int
	return &cli.Command{
		Name:    "list",
		Summary: "List users",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.IntVar(&limit, "limit", api.DefaultUserPageSize, "page size")
			fs.IntVar(&offset, "offset", 0, "rows to skip")
			return fs
		},
		Run: func(args []string) error {
			return s.ListUsers(ctx, limit, offset)
		},
	}
}

func (s *Shell) createUserCommand(ctx context.Context) *cli.Command {
	var name, roles string
	return &cli.Command{
		Name:    "create",
		Summary: "Create a user",
		Usage:   "users create <email> [--name <display name>] [--roles a,b]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
			fs.StringVar(&name, "name", "", "display name")
			fs.StringVar(&roles, "roles", "", "comma-separated roles")
			return fs
		},
		Run: func(args []string) error {
			email := ""
			if len(args) > 0 {
				email = args[0]
			}
			return s.CreateUser(ctx, email, name, roles)
		},
	}
}

func (s *Shell) updateUserCommand(ctx context.Context) *cli.Command {
	var active bool
	var name, roles string
	var fs *pflag.FlagSet
	return &cli.Command{
		Name:    "update",
		Summary: "Change a user's status, roles or display name",
		Usage:   "users update <id> [--active=true|false] [--roles a,b] [--name <display name>]",
		Examples: []cli.Example{
			{Description: "Replace roles (trimmed, empties dropped)", Command: `users update 7 --roles "admin, ops"`},
			{Description: "Remove every role", Command: `users update 7 --roles ""`},
		},
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("update", pflag.ContinueOnError)
			fs.BoolVar(&active, "active", true, "whether the account is active")
			fs.StringVar(&roles, "roles", "", "comma-separated roles, replacing the current set")
			fs.StringVar(&name, "name", "", "display name")
			return fs
		},
		Run: func(args []string) error {
			id, err := idArg(args, "id")
			if err != nil {
				return err
			}
			var patch api.UserPatch
			if fs.Changed("active") {
				value := active
				patch.IsActive = &value
			}
			if fs.Changed("roles") {
				patch.Roles = api.ParseRoles(roles)
			}
			if fs.Changed("name") {
				value := name
				patch.DisplayName = &value
			}
			return s.UpdateUser(ctx, id, patch)
		},
	}
}

func (s *Shell) setPasswordCommand(ctx context.Context) *cli.Command {
	var password string
	return &cli.Command{
		Name:    "set-password",
		Summary: "Set a user's password",
		Usage:   "users set-password <id> [--password <password>]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("set-password", pflag.ContinueOnError)
			fs.StringVarP(&password, "password", "p", "", "new password (prompted when omitted)")
			return fs
		},
		Run: func(args []string) error {
			id, err := idArg(args, "id")
			if err != nil {
				return err
			}
			if password == "" {
				secret, err := s.prompter.ReadSecret("New password: ")
				if err != nil {
					return err
				}
				password = secret
			}
			return s.SetPassword(ctx, id, password)
		},
	}
}

func (s *Shell) listCredentialsCommand(ctx context.Context) *cli.Command {
	var userID int64
	return &cli.Command{
		Name:    "list",
		Summary: "List credentials (secrets are never shown)",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.Int64Var(&userID, "user", 0, "only this user's credentials")
			return fs
		},
		Run: func(args []string) error {
			return s.ListCredentials(ctx, userID)
		},
	}
}

func (s *Shell) createCredentialCommand(ctx context.Context) *cli.Command {
	var label string
	return &cli.Command{
		Name:    "create",
		Summary: "Issue a credential; the secret is shown once",
		Usage:   "credentials create <user-id> [--label <label>]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
			fs.StringVar(&label, "label", "", "label for the credential")
			return fs
		},
		Run: func(args []string) error {
			userID, err := idArg(args, "user-id")
			if err != nil {
				return err
			}
			return s.CreateCredential(ctx, userID, label)
		},
	}
}

func (s *Shell) auditCommand(ctx context.Context) *cli.Command {
	var limit int
	var filter string
	return &cli.Command{
		Name:    "audit",
		Summary: "Browse the audit log",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("audit", pflag.ContinueOnError)
			fs.IntVar(&limit, "limit", api.DefaultAuditLimit, "entries to fetch (1-500)")
			fs.StringVar(&filter, "filter", "", "only event types containing this text")
			return fs
		},
		Run: func(args []string) error {
			return s.Audit(ctx, limit, filter)
		},
	}
}

func (s *Shell) chatCommand(ctx context.Context) *cli.Command {
	var model string
	return &cli.Command{
		Name:    "chat",
		Summary: "Send a prompt to the model proxy",
		Usage:   "chat [--model <name>] <prompt...>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("chat", pflag.ContinueOnError)
			fs.StringVar(&model, "model", "", "model name")
			return fs
		},
		Run: func(args []string) error {
			return s.Chat(ctx, model, strings.Join(args, " "))
		},
	}
}

func (s *Shell) embedCommand(ctx context.Context) *cli.Command {
	var model string
	return &cli.Command{
		Name:    "embed",
		Summary: "Compute an embedding through the model proxy",
		Usage:   "embed [--model <name>] <text...>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("embed", pflag.ContinueOnError)
			fs.StringVar(&model, "model", "", "model name")
			return fs
		},
		Run: func(args []string) error {
			return s.Embed(ctx, model, strings.Join(args, " "))
		},
	}
}

func idArg(args []string, name string) (int64, error) {
	if len(args) == 0 {
		return 0, &ValidationError{Field: name, Message: "required"}
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}
