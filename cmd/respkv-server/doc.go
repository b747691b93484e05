// Package main provides the entry point for respkv-server.
//
// respkv-server is an in-memory key-value store speaking RESP over TCP,
// with an admin HTTP listener for health, metrics and a WebSocket gateway.
//
// Usage:
//
//	respkv-server [-config respkv.yaml] [-env-file .env] [-version]
package main
