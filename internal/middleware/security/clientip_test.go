package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPResolver(t *testing.T) {
	resolver, err := NewClientIPResolver()
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct peer", "203.0.113.9:5000", "", "", "203.0.113.9"},
		{"untrusted peer ignores xff", "203.0.113.9:5000", "198.51.100.1", "", "203.0.113.9"},
		{"untrusted peer ignores x-real-ip", "203.0.113.9:5000", "", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy xff", "10.0.0.5:5000", "198.51.100.1", "", "198.51.100.1"},
		{"spoofed leftmost entry skipped", "10.0.0.5:5000", "1.2.3.4, 198.51.100.1", "", "198.51.100.1"},
		{"proxy chain", "127.0.0.1:5000", "198.51.100.1, 192.168.1.10", "", "198.51.100.1"},
		{"trusted proxy x-real-ip", "10.0.0.5:5000", "", "198.51.100.7", "198.51.100.7"},
		{"garbage xff falls back to peer", "10.0.0.5:5000", "not-an-ip", "", "10.0.0.5"},
		{"all hops trusted", "10.0.0.5:5000", "10.0.0.6", "", "10.0.0.5"},
		{"no port", "203.0.113.9", "198.51.100.1", "", "203.0.113.9"},
		{"ipv6 loopback proxy", "[::1]:5000", "2001:db8::1", "", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := resolver.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIPResolverCustomProxies(t *testing.T) {
	resolver, err := NewClientIPResolver("203.0.113.0/24")
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := resolver.ClientIP(r); got != "10.0.0.5" {
		t.Errorf("private ranges are not trusted once proxies are configured, got %q", got)
	}

	if _, err := NewClientIPResolver("nonsense"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestClientIPMiddleware(t *testing.T) {
	resolver, _ := NewClientIPResolver()
	var seen string
	h := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:1"
	r.Header.Set("X-Forwarded-For", "198.51.100.4")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "198.51.100.4" {
		t.Errorf("ClientIPFromContext = %q", seen)
	}
	if _, ok := ClientIPFromContext(r.Context()); ok {
		t.Error("outer request context must not carry the address")
	}
}
