package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/respkv/internal/server/respserver"
	"github.com/yndnr/respkv/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startRESP starts a RESP server on a random port.
func startRESP(t *testing.T) *respserver.Server {
	t.Helper()
	srv := respserver.New(&respserver.Config{Address: "127.0.0.1:0"}, memory.New(),
		respserver.WithLogger(quietLogger()))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestServer_ListenAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ListenAndServe()
	}()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errChan:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "ListenAndServe() error = %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for ListenAndServe to return")
	}
}

func TestServer_ListenAndServe_BadAddr(t *testing.T) {
	s := New("256.0.0.1:bad", http.NotFoundHandler())
	assert.Error(t, s.ListenAndServe())
	assert.Nil(t, s.Addr())
}

// ============================================================================
// Router
// ============================================================================

func TestRouter_Health(t *testing.T) {
	ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger()}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_Ready(t *testing.T) {
	t.Run("no resp server", func(t *testing.T) {
		ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger()}))
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("running", func(t *testing.T) {
		srv := startRESP(t)
		ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger(), RESP: srv}))
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, srv.Addr().String(), body["address"])
		assert.EqualValues(t, 0, body["clients"])
	})
}

func TestRouter_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "respkv_keys 0\n")
	})
	ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger(), Metrics: metrics}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "respkv_keys")
}

func TestRouter_DisabledRoutes(t *testing.T) {
	ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger()}))
	defer ts.Close()

	for _, path := range []string{"/metrics", "/ws"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(NewRouter(&RouterConfig{Logger: quietLogger()}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/health", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	assert.True(t, cfg.WebSocket)
	assert.NotNil(t, cfg.Logger)
}

// ============================================================================
// Middleware
// ============================================================================

func TestRequestID_PreservesHeader(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-fixed")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-fixed", seen)
	assert.Equal(t, "req-fixed", rec.Header().Get("X-Request-ID"))
}

func TestRequestID_Generates(t *testing.T) {
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/", nil))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/", nil))

	id1, id2 := rec1.Header().Get("X-Request-ID"), rec2.Header().Get("X-Request-ID")
	assert.True(t, strings.HasPrefix(id1, "req-"))
	assert.NotEqual(t, id1, id2)
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover(quietLogger()), RequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestAccessLog_RecordsStatus(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	out := buf.String()
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "path=/brew")
	assert.Contains(t, out, "level=WARN")
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"ipv6", "[::1]:8080", nil, "::1"},
		{"forwarded", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "1.2.3.4"},
		{"real ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
		{"no port", "unix", nil, "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
