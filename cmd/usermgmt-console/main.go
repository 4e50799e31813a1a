// Command usermgmt-console is the operator console for the user-management
// backend. With a command it runs once and exits; "shell" starts an
// interactive session that keeps the login between commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"usermgmt/internal/api"
	"usermgmt/internal/cli"
	"usermgmt/internal/config"
	"usermgmt/internal/console"
	"usermgmt/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err == nil {
		return
	}

	var exit interface{ ExitCode() int }
	if errors.As(err, &exit) {
		os.Exit(exit.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", console.Describe(err))
	os.Exit(1)
}

func run(ctx context.Context, args []string) error {
	cfg := config.LoadConsole()
	var asJSON bool

	globals := pflag.NewFlagSet("usermgmt-console", pflag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.StringVar(&cfg.APIBase, "api-base", cfg.APIBase, "backend base URL (env USERMGMT_API_BASE)")
	globals.StringVar(&cfg.Token, "token", cfg.Token, "bearer token to start with (env USERMGMT_TOKEN)")
	globals.BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	globals.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: auto, text or json")
	globals.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	if err := globals.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := logging.New(logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	client, err := api.New(api.Config{BaseURL: cfg.APIBase, Logger: logger})
	if err != nil {
		return err
	}
	shell := console.New(console.Options{
		Backend: client,
		Session: api.NewSession(cfg.Token),
		Out:     os.Stdout,
		Logger:  logger,
		JSON:    asJSON,
	})

	commands := shell.Commands(ctx)
	commands = append(commands, &cli.Command{
		Name:    "shell",
		Summary: "Start an interactive session",
		Run: func([]string) error {
			return shell.RunREPL(ctx, os.Stdin)
		},
	})
	root := &cli.Command{
		Name:        "usermgmt-console",
		Description: "Operator console for user accounts, API credentials, the audit log and model calls.",
		Subcommands: commands,
		Output:      os.Stderr,
		Examples: []cli.Example{
			{Description: "Interactive session", Command: "usermgmt-console shell"},
			{Description: "One-shot call with a token", Command: "usermgmt-console --token $TOKEN users list --limit 10"},
		},
	}
	if globals.NArg() == 0 {
		root.PrintHelp(os.Stderr)
		fmt.Fprintf(os.Stderr, "\nGlobal flags:\n%s", globals.FlagUsages())
		return nil
	}
	return root.Execute(globals.Args())
}
