package tools

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// StdinIsTerminal reports whether stdin is an interactive terminal.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadSecret prints prompt to stderr and reads a line from the terminal
// without echoing it.
func ReadSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", prompt, err)
	}
	return string(secret), nil
}

// ReadNewSecret prompts twice and fails when the entries differ or are empty.
func ReadNewSecret(prompt string) (string, error) {
	secret, err := ReadSecret(prompt + ": ")
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("%s cannot be empty", prompt)
	}

	confirm, err := ReadSecret("Confirm " + prompt + ": ")
	if err != nil {
		return "", err
	}
	if secret != confirm {
		return "", fmt.Errorf("%s entries do not match", prompt)
	}
	return secret, nil
}
