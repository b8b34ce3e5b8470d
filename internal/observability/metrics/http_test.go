package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/v1/compiler", "/api/v1/compiler"},
		{"/api/v1/networks", "/api/v1/networks"},
		{"/api/v1/networks/", "/api/v1/networks/"},
		{"/api/v1/networks/espaceTestnet", "/api/v1/networks/{name}"},
		{"/api/v1/snapshots/6f1c0a2e-4c1b-4b8e-9a57-2d7c1e3f5a90", "/api/v1/snapshots/{id}"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestDisabledMetrics(t *testing.T) {
	Init(false, "test")

	// Recorders must be no-ops when disabled
	NetworkResolve(ResultOK)
	SnapshotRecord("ok")

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/compiler", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, Enabled())
}
