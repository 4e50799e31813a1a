package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"usermgmt/internal/cli"
)

const prompt = "usermgmt> "

// RunREPL reads commands from in until EOF or "exit". The session lives as
// long as the loop does. Command errors are printed and the loop goes on.
func (s *Shell) RunREPL(ctx context.Context, in io.Reader) error {
	root := &cli.Command{
		Name:        "usermgmt",
		Description: "Interactive console. Type a command, \"help\" for the list, \"exit\" to leave.",
		Subcommands: s.Commands(ctx),
		Output:      s.out,
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, prompt)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		args, err := SplitLine(scanner.Text())
		switch {
		case err != nil:
			fmt.Fprintf(s.out, "error: %v\n", err)
		case len(args) == 0:
		case args[0] == "exit" || args[0] == "quit":
			return nil
		default:
			var exit *cli.ExitError
			if err := root.Execute(args); err != nil && !errors.As(err, &exit) {
				fmt.Fprintf(s.out, "error: %s\n", Describe(err))
			}
		}
		fmt.Fprint(s.out, prompt)
	}
	return scanner.Err()
}

var errUnterminatedQuote = errors.New("unterminated quote")

// SplitLine splits a command line into words. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func SplitLine(line string) ([]string, error) {
	var words []string
	var current strings.Builder
	inWord := false
	var quote rune
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 || escaped {
		return nil, errUnterminatedQuote
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
