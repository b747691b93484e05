package repl

import (
	"strings"

	"github.com/samber/lo"
)

// Completer suggests commands for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for the server commands and the
// local REPL commands.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"PING", "ECHO", "GET", "SET",
			"CLIENT INFO", "CLIENT ID", "CLIENT LIST", "CLIENT SETINFO",
			"QUIT",
			"help", "history", "exit",
		},
	}
}

// Complete returns the commands starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	p := strings.ToLower(strings.Join(strings.Fields(prefix), " "))
	return lo.Filter(c.commands, func(cmd string, _ int) bool {
		return strings.HasPrefix(strings.ToLower(cmd), p)
	})
}

// Commands returns all known commands.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}
