// Package connection provides the RESP client used by respkv-cli.
//
// Client encodes commands and decodes replies with tidwall/resp. Manager
// holds the current connection for the REPL and reconnects on demand.
package connection
