// Package httpserver provides the admin HTTP server for respkv.
//
// Routes:
//
//   - GET /health: liveness
//   - GET /ready: readiness, including the live RESP client count
//   - GET /metrics: Prometheus exposition
//   - GET /ws: RESP over WebSocket
//
// The /ws endpoint upgrades with gorilla/websocket and hands the
// connection to the RESP server, so WebSocket clients get a session id,
// CLIENT commands and the same framing rules as TCP clients. Binary and
// text messages are both treated as a byte stream; a frame may span
// messages and a message may carry several frames.
package httpserver
