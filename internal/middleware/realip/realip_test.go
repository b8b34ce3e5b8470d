package realip

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "proxy trust disabled ignores XFF",
			cfg:        Config{TrustProxy: false, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "192.168.1.100:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:       "192.168.1.100",
		},
		{
			name:       "trusted proxy uses first untrusted hop",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8", "192.168.0.0/16"}},
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.5"},
			want:       "203.0.113.50",
		},
		{
			name:       "untrusted proxy keeps remote address",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "192.168.1.100:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:       "192.168.1.100",
		},
		{
			name:       "X-Real-IP fallback",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": " 203.0.113.50 "},
			want:       "203.0.113.50",
		},
		{
			name:       "spoofed leftmost hop is skipped",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.7, 10.0.0.2"},
			want:       "198.51.100.7",
		},
		{
			name:       "all hops trusted returns leftmost",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.9, 10.0.0.2"},
			want:       "10.0.0.9",
		},
		{
			name:       "single address entry",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"127.0.0.1"}},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "no forwarding headers",
			cfg:        Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:12345",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := Middleware(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, captured)
		})
	}
}

func TestGetClientIP_NoContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:9999"
	assert.Equal(t, "192.0.2.4", GetClientIP(req))
}

func TestParseTrusted(t *testing.T) {
	got := ParseTrusted([]string{"10.0.0.0/8", "10.1.2.3/8", "::1", "192.0.2.1", "not-an-ip"})
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}, got)
}

func TestIsTrusted(t *testing.T) {
	trusted := ParseTrusted([]string{"10.0.0.0/8", "2001:db8::/32"})

	assert.True(t, isTrusted("10.20.30.40", trusted))
	assert.True(t, isTrusted("::ffff:10.0.0.1", trusted))
	assert.True(t, isTrusted("2001:db8::1", trusted))
	assert.False(t, isTrusted("192.168.0.1", trusted))
	assert.False(t, isTrusted("garbage", trusted))
}
