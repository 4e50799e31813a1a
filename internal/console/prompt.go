package console

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Prompter reads a value without echoing it.
type Prompter interface {
	ReadSecret(prompt string) (string, error)
}

// TerminalPrompter reads from In when it is a terminal, with echo off.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func (p TerminalPrompter) ReadSecret(prompt string) (string, error) {
	if p.In == nil || !term.IsTerminal(int(p.In.Fd())) {
		return "", errors.New("cannot prompt for a secret: stdin is not a terminal")
	}
	fmt.Fprint(p.Out, prompt)
	secret, err := term.ReadPassword(int(p.In.Fd()))
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secret), nil
}
