// Package repl provides the interactive mode of respkv-cli.
//
// Lines are split with shell-style quoting (see SplitLine) and handed to
// an Executor. exit, quit, help and history are handled locally.
package repl
