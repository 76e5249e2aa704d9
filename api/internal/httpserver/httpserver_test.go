package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typing-assistant/api/internal/observe"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := New(":0", nil, nil)
	rec := get(t, s.Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	ok := Checker{Name: "database", Check: func(context.Context) error { return nil }}
	bad := Checker{Name: "cache", Check: func(context.Context) error { return errors.New("down") }}

	t.Run("no checkers", func(t *testing.T) {
		rec := get(t, New(":0", nil, nil).Handler(), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("all pass", func(t *testing.T) {
		rec := get(t, New(":0", nil, nil, ok).Handler(), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())
	})

	t.Run("one fails", func(t *testing.T) {
		rec := get(t, New(":0", nil, nil, ok, bad).Handler(), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body healthResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "fail", body.Status)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, "fail: down", body.Checks["cache"])
	})

	t.Run("checker gets a deadline", func(t *testing.T) {
		var hasDeadline bool
		c := Checker{Name: "d", Check: func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}}
		get(t, New(":0", nil, nil, c).Handler(), "/readyz")
		assert.True(t, hasDeadline)
	})
}

func TestMetricsAndMiddleware(t *testing.T) {
	m := observe.New()
	s := New(":0", m, nil)
	s.Handle("GET /ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))

	assert.Equal(t, "pong", get(t, s.Handler(), "/ping").Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET /ping", "200")))

	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "typing_assistant_http_requests_total")
}

func TestNoMetricsRoute(t *testing.T) {
	rec := get(t, New(":0", nil, nil).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(ln.Addr().String(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `"ok"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := New(ln.Addr().String(), nil, nil)
	assert.Error(t, s.Run(context.Background()))
}
