package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/deployconf/internal/middleware/realip"
)

func testHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// serve runs one request through h and returns the decoded log line
func serve(t *testing.T, wrap func(http.Handler) http.Handler, h http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := Middleware(logger)(h)
	if wrap != nil {
		handler = wrap(handler)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &entry))
	return entry
}

func TestMiddleware_LogsRequests(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/networks/sepolia", nil)
	req.RemoteAddr = "192.168.1.100:12345"

	entry := serve(t, nil, testHandler(http.StatusOK, "hello"), req)

	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/networks/sepolia", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, float64(5), entry["bytes"])
	assert.NotEmpty(t, entry["duration"])
	assert.Equal(t, "192.168.1.100", entry["client_ip"])
}

func TestMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotModified, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusUnprocessableEntity, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			entry := serve(t, nil, testHandler(tt.status, ""), req)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestMiddleware_DefaultStatus200(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no explicit status"))
	})
	entry := serve(t, nil, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestMiddleware_IncludesRequestID(t *testing.T) {
	entry := serve(t, middleware.RequestID, testHandler(http.StatusOK, ""), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, entry["request_id"])

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-123"))
	entry = serve(t, nil, testHandler(http.StatusOK, ""), req)
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestMiddleware_UsesRealIPFromContext(t *testing.T) {
	wrap := realip.Middleware(realip.Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")

	entry := serve(t, wrap, testHandler(http.StatusOK, ""), req)
	assert.Equal(t, "203.0.113.50", entry["client_ip"])
}

func TestStatusRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr, status: http.StatusOK}

	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusNotFound, rec.status)

	n, err := rec.Write([]byte("test"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	rec.Write([]byte("more"))
	assert.Equal(t, 8, rec.bytes)

	assert.Equal(t, rr, rec.Unwrap())
}
