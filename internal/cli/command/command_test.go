package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/server/respserver"
	"github.com/yndnr/respkv/internal/storage/memory"
)

func startServer(t *testing.T) string {
	t.Helper()
	srv := respserver.New(&respserver.Config{Address: "127.0.0.1:0"}, memory.New(),
		respserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv.Addr().String()
}

// run executes the CLI against addr and returns what it wrote.
func run(t *testing.T, addr, stdin string, args ...string) (string, error) {
	t.Helper()
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(context.Background(), append([]string{"respkv-cli", "-a", addr}, args...))
	return out.String(), err
}

func TestApp(t *testing.T) {
	app := App()
	assert.Equal(t, "respkv-cli", app.Name)
	assert.NotNil(t, app.Action)

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"ping", "echo", "get", "set", "client", "exec", "repl"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	flags := make(map[string]bool)
	for _, f := range app.Flags {
		for _, n := range f.Names() {
			flags[n] = true
		}
	}
	for _, want := range []string{"addr", "a", "timeout", "output", "o"} {
		assert.True(t, flags[want], "missing flag %s", want)
	}
}

func TestPingEcho(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", out)

	out, err = run(t, addr, "", "ping", "hello")
	require.NoError(t, err)
	assert.Equal(t, "\"hello\"\n", out)

	out, err = run(t, addr, "", "echo", "a b")
	require.NoError(t, err)
	assert.Equal(t, "\"a b\"\n", out)

	_, err = run(t, addr, "", "echo")
	assert.ErrorContains(t, err, "usage:")
}

func TestSetGet(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "", "get", "k")
	require.NoError(t, err)
	assert.Equal(t, "(nil)\n", out)

	out, err = run(t, addr, "", "set", "k", "v")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run(t, addr, "", "get", "k")
	require.NoError(t, err)
	assert.Equal(t, "\"v\"\n", out)

	out, err = run(t, addr, "", "-o", "json", "get", "k")
	require.NoError(t, err)
	assert.Equal(t, "\"v\"\n", out)
}

func TestSet_PX(t *testing.T) {
	addr := startServer(t)

	_, err := run(t, addr, "", "set", "--px", "20", "k", "v")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		out, err := run(t, addr, "", "get", "k")
		return err == nil && out == "(nil)\n"
	}, 2*time.Second, 10*time.Millisecond)

	_, err = run(t, addr, "", "set", "k2", "v", "--px", "60000")
	require.NoError(t, err)
	out, err := run(t, addr, "", "get", "k2")
	require.NoError(t, err)
	assert.Equal(t, "\"v\"\n", out)

	_, err = run(t, addr, "", "set", "--px", "-5", "k", "v")
	assert.True(t, connection.IsServerError(err))
}

func TestExec(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "", "exec", "SET", "k", "v")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	_, err = run(t, addr, "", "exec", "GET")
	require.Error(t, err)
	assert.True(t, connection.IsServerError(err))
	assert.Contains(t, err.Error(), "wrong number of arguments")

	_, err = run(t, addr, "", "exec")
	assert.ErrorContains(t, err, "usage:")
}

func TestClientInfo(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "", "client", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "lib-name")
	assert.Contains(t, out, "respkv-cli")

	out, err = run(t, addr, "", "-o", "json", "client", "info")
	require.NoError(t, err)
	assert.Contains(t, out, `"lib-name": "respkv-cli"`)
	assert.Less(t, strings.Index(out, `"id"`), strings.Index(out, `"lib-name"`))
}

func TestClientList(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "", "client", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "LIB-NAME")

	out, err = run(t, addr, "", "client", "id")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "(integer) "), out)
}

func TestClientSetInfo(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "", "client", "setinfo", "--lib-ver", "9.9")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	_, err = run(t, addr, "", "client", "setinfo")
	assert.ErrorContains(t, err, "at least one")
}

func TestInvalidOutput(t *testing.T) {
	addr := startServer(t)
	_, err := run(t, addr, "", "-o", "xml", "ping")
	assert.Error(t, err)
}

func TestDialError(t *testing.T) {
	_, err := run(t, "127.0.0.1:1", "", "--timeout", "200ms", "ping")
	assert.Error(t, err)
}

func TestRepl(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "set k v\nget k\nexec GET\nquit\n", "repl", "--history-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, addr+"> ")
	assert.Contains(t, out, "OK\n")
	assert.Contains(t, out, "\"v\"\n")
	assert.Contains(t, out, "(error) ERR unknown command 'exec'")
}

func TestRepl_DefaultAction(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	addr := startServer(t)

	out, err := run(t, addr, "ping\n")
	require.NoError(t, err)
	assert.Contains(t, out, "PONG\n")
}
