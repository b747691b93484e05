package httpserver

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/respkv/internal/server/respserver"
)

const wsBufferSize = 16 * 1024

// wsConn exposes a WebSocket as a byte stream. Writes accumulate until
// FlushMessage sends them as one binary message, so each reply travels in
// exactly one message; reads concatenate incoming message payloads.
type wsConn struct {
	ws  *websocket.Conn
	r   io.Reader
	out bytes.Buffer
}

var (
	_ net.Conn                 = (*wsConn)(nil)
	_ respserver.MessageWriter = (*wsConn)(nil)
)

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.r = r
		}

		n, err := c.r.Read(p)
		if errors.Is(err, io.EOF) {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// FlushMessage sends everything written since the last flush.
func (c *wsConn) FlushMessage() error {
	if c.out.Len() == 0 {
		return nil
	}
	defer c.out.Reset()
	return c.ws.WriteMessage(websocket.BinaryMessage, c.out.Bytes())
}

func (c *wsConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

// WebSocketHandler upgrades requests and serves them as RESP connections.
// A nil checkOrigin accepts same-origin requests only.
func WebSocketHandler(srv *respserver.Server, checkOrigin func(*http.Request) bool, logger *slog.Logger) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin:     checkOrigin,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		srv.ServeConn(r.Context(), newWSConn(ws))
	})
}
