package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesNestedSubcommands(t *testing.T) {
	var called string
	var received []string

	root := &Command{
		Name: "usermgmt-console",
		Subcommands: []*Command{
			{
				Name: "users",
				Subcommands: []*Command{
					{Name: "list", Run: func(args []string) error { called = "users list"; return nil }},
					{Name: "show", Run: func(args []string) error { called = "users show"; received = args; return nil }},
				},
			},
		},
	}

	if err := root.Execute([]string{"users", "show", "7"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "users show" || len(received) != 1 || received[0] != "7" {
		t.Fatalf("called %q with %v", called, received)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var limit int
	var asJSON bool
	var rest []string

	cmd := &Command{
		Name: "audit",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("audit", pflag.ContinueOnError)
			fs.IntVar(&limit, "limit", 100, "max entries")
			fs.BoolVar(&asJSON, "json", false, "output as JSON")
			return fs
		},
		Run: func(args []string) error { rest = args; return nil },
	}

	if err := cmd.Execute([]string{"--limit", "5", "--json", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if limit != 5 || !asJSON || len(rest) != 1 || rest[0] != "extra" {
		t.Fatalf("limit=%d json=%v rest=%v", limit, asJSON, rest)
	}
}

func TestExecuteSuggestsCommand(t *testing.T) {
	root := &Command{
		Name:   "usermgmt-console",
		Output: &bytes.Buffer{},
		Subcommands: []*Command{
			{Name: "credentials", Run: func([]string) error { return nil }},
			{Name: "users", Run: func([]string) error { return nil }},
		},
	}
	err := root.Execute([]string{"usres"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "users"`) {
		t.Fatalf("expected suggestion, got %v", err)
	}
}

func TestExecuteSuggestsFlag(t *testing.T) {
	cmd := &Command{
		Name: "audit",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("audit", pflag.ContinueOnError)
			fs.Int("limit", 100, "max entries")
			return fs
		},
		Run: func([]string) error { return nil },
	}
	err := cmd.Execute([]string{"--limt", "3"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --limit") {
		t.Fatalf("expected flag suggestion, got %v", err)
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:   "usermgmt-console",
		Output: &help,
		Subcommands: []*Command{
			{Name: "health", Summary: "Check backend health", Run: func([]string) error { return nil }},
		},
	}
	if err := root.Execute(nil); err == nil {
		t.Fatal("expected error without subcommand")
	}
	if !strings.Contains(help.String(), "health") || !strings.Contains(help.String(), "Check backend health") {
		t.Fatalf("help output missing command listing:\n%s", help.String())
	}
}

func TestHelpFlagPrintsHelp(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:   "usermgmt-console",
		Output: &help,
		Subcommands: []*Command{
			{
				Name:     "login",
				Summary:  "Log in",
				Examples: []Example{{Description: "interactive", Command: "usermgmt-console login admin@example.com"}},
				Run:      func([]string) error { t.Fatal("Run must not be called for --help"); return nil },
			},
		},
	}
	if err := root.Execute([]string{"login", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(help.String(), "usermgmt-console login admin@example.com") {
		t.Fatalf("help output missing example:\n%s", help.String())
	}
}

func TestFind(t *testing.T) {
	leaf := &Command{Name: "create"}
	root := &Command{Name: "root", Subcommands: []*Command{{Name: "users", Subcommands: []*Command{leaf}}}}
	if got := root.Find("users", "create"); got != leaf {
		t.Fatalf("Find returned %v", got)
	}
	if root.Find("users", "nope") != nil {
		t.Fatal("Find should return nil for unknown path")
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"users", "users", 0},
		{"usres", "users", 2},
		{"kitten", "sitting", 3},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Fatalf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestWriteJSONNilSlice(t *testing.T) {
	var buf bytes.Buffer
	var items []string
	if err := WriteJSON(&buf, items); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("got %q", buf.String())
	}
}
