package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/respkv/internal/server/respserver"
)

func startGateway(t *testing.T) (*respserver.Server, string) {
	t.Helper()
	srv := startRESP(t)
	ts := httptest.NewServer(NewRouter(&RouterConfig{
		Logger:    quietLogger(),
		RESP:      srv,
		WebSocket: true,
	}))
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readReplies reads messages until want bytes have arrived.
func readReplies(t *testing.T, ws *websocket.Conn, want string) {
	t.Helper()
	var got bytes.Buffer
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for got.Len() < len(want) {
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err, "received so far: %q", got.String())
		got.Write(msg)
	}
	assert.Equal(t, want, got.String())
}

func send(t *testing.T, ws *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte(payload)))
}

func TestWebSocket_PingAndData(t *testing.T) {
	_, url := startGateway(t)
	ws := dialWS(t, url)

	send(t, ws, "*1\r\n$4\r\nPING\r\n")
	readReplies(t, ws, "+PONG\r\n")

	send(t, ws, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$2\r\nv1\r\n")
	readReplies(t, ws, "+OK\r\n")

	send(t, ws, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	readReplies(t, ws, "$2\r\nv1\r\n")
}

func TestWebSocket_TextMessages(t *testing.T) {
	_, url := startGateway(t)
	ws := dialWS(t, url)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n")))
	readReplies(t, ws, "$2\r\nhi\r\n")
}

func TestWebSocket_FrameAcrossMessages(t *testing.T) {
	_, url := startGateway(t)
	ws := dialWS(t, url)

	send(t, ws, "*2\r\n$4\r\nEC")
	send(t, ws, "HO\r\n$5\r\nhel")
	send(t, ws, "lo\r\n")
	readReplies(t, ws, "$5\r\nhello\r\n")
}

func TestWebSocket_PipelinedInOneMessage(t *testing.T) {
	_, url := startGateway(t)
	ws := dialWS(t, url)

	send(t, ws, "*1\r\n$4\r\nPING\r\n*2\r\n$4\r\nPING\r\n$1\r\nx\r\n*2\r\n$3\r\nGET\r\n$7\r\nmissing\r\n")
	readReplies(t, ws, "+PONG\r\n$1\r\nx\r\n$-1\r\n")
}

func TestWebSocket_LargeReplyIsOneMessage(t *testing.T) {
	_, url := startGateway(t)
	ws := dialWS(t, url)

	payload := strings.Repeat("x", 10000)
	send(t, ws, "*2\r\n$4\r\nECHO\r\n$10000\r\n"+payload+"\r\n")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "$10000\r\n"+payload+"\r\n", string(msg))
}

func TestWebSocket_OneMessagePerReply(t *testing.T) {
	_, url := startGateway(t)
	ws := dialWS(t, url)

	send(t, ws, "*1\r\n$4\r\nPING\r\n*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for _, want := range []string{"+PONG\r\n", "$2\r\nhi\r\n"} {
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(msg))
	}
}

func TestWebSocket_SharesKeyspaceAndSessions(t *testing.T) {
	srv, url := startGateway(t)
	a := dialWS(t, url)
	b := dialWS(t, url)

	send(t, a, "*3\r\n$3\r\nSET\r\n$6\r\nshared\r\n$1\r\n1\r\n")
	readReplies(t, a, "+OK\r\n")
	send(t, b, "*2\r\n$3\r\nGET\r\n$6\r\nshared\r\n")
	readReplies(t, b, "$1\r\n1\r\n")

	require.Eventually(t, func() bool { return srv.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	send(t, a, "*2\r\n$6\r\nCLIENT\r\n$2\r\nID\r\n")
	send(t, b, "*2\r\n$6\r\nCLIENT\r\n$2\r\nID\r\n")

	readID := func(ws *websocket.Conn) string {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		return string(msg)
	}
	idA, idB := readID(a), readID(b)
	assert.True(t, strings.HasPrefix(idA, ":"))
	assert.NotEqual(t, idA, idB)
}

func TestWebSocket_ProtocolErrorCloses(t *testing.T) {
	srv, url := startGateway(t)
	ws := dialWS(t, url)

	send(t, ws, "*1\r\n$99999999999\r\n")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(msg), "-ERR limit exceeded"), "reply = %q", msg)

	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err = %v", err)

	require.Eventually(t, func() bool { return srv.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_PeerCloseUnregisters(t *testing.T) {
	srv, url := startGateway(t)
	ws := dialWS(t, url)

	send(t, ws, "*1\r\n$4\r\nPING\r\n")
	readReplies(t, ws, "+PONG\r\n")
	require.Equal(t, 1, srv.ClientCount())

	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.Eventually(t, func() bool { return srv.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RejectsCrossOrigin(t *testing.T) {
	_, url := startGateway(t)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_Disabled(t *testing.T) {
	srv := startRESP(t)
	ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger(), RESP: srv, WebSocket: false}))
	defer ts.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
