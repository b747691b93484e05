// Package command defines the respkv-cli commands with urfave/cli/v2.
//
//   - root.go: App, global flags, shared connection and rendering helpers
//   - data.go: ping, echo, get, set and exec
//   - client.go: the client command group
//   - repl.go: interactive mode, also the default action
//
// Error replies from single commands are returned as errors so the process
// exits non-zero; the REPL prints them and continues.
package command
