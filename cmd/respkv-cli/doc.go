// Package main provides the entry point for respkv-cli.
//
// Usage:
//
//	respkv-cli [-a host:port] [-o text|json|yaml] [command] [args]
//	respkv-cli set --px 5000 greeting hello
//	respkv-cli -o json client list
//
// With no command the CLI starts an interactive session.
package main
