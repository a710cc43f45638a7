// Package prompt reads credentials from an interactive terminal with echo
// disabled, so passwords never land in shell history, process listings, or
// terminal scrollback.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Seams for hermetic tests; production uses the real terminal functions.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// Password prints label and reads a line from stdin with echo disabled.
// It fails when stdin is not a terminal: the password cannot be piped in or
// redirected from a file, only typed.
func Password(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; password must be entered interactively")
	}
	fmt.Print(label)
	b, err := readPassword(fd)
	fmt.Println() // ReadPassword swallows the user's newline
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
