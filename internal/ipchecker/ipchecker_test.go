package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.IsTrustedSubnetEmpty())
	assert.False(t, checker.Check(net.ParseIP("127.0.0.1")))

	checker, err = New("10.0.0.0/8", WithTrustedProxies(""))
	require.NoError(t, err)
	assert.False(t, checker.IsTrustedSubnetEmpty())
	assert.True(t, checker.Check(net.ParseIP("10.1.2.3")))

	_, err = New("not-a-cidr")
	assert.Error(t, err)

	_, err = New("", WithTrustedProxies("not-a-cidr"))
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	behindProxy, err := New("", WithTrustedProxies("10.0.0.0/8"))
	require.NoError(t, err)

	direct, err := New("")
	require.NoError(t, err)

	tests := []struct {
		name       string
		checker    *IPChecker
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
		wantErr    bool
	}{
		{name: "x_real_ip_from_proxy", checker: behindProxy, realIP: "1.1.1.1", remoteAddr: "10.0.0.2:5555", want: "1.1.1.1"},
		{name: "x_real_ip_from_client", checker: behindProxy, realIP: "1.1.1.1", remoteAddr: "1.2.3.4:5555", want: "1.2.3.4"},
		{name: "x_forwarded_for_last_hop", checker: behindProxy, forwarded: "6.6.6.6, 5.5.5.5", remoteAddr: "10.0.0.2:5555", want: "5.5.5.5"},
		{name: "x_forwarded_for_skips_proxies", checker: behindProxy, forwarded: "5.5.5.5, 10.0.0.3", remoteAddr: "10.0.0.2:5555", want: "5.5.5.5"},
		{name: "broken_x_forwarded_for", checker: behindProxy, forwarded: "garbage", remoteAddr: "10.0.0.2:5555", want: "10.0.0.2"},
		{name: "headers_ignored_without_proxies", checker: direct, realIP: "1.1.1.1", forwarded: "5.5.5.5", remoteAddr: "1.2.3.4:5555", want: "1.2.3.4"},
		{name: "remote_addr", checker: direct, remoteAddr: "1.2.3.4:5555", want: "1.2.3.4"},
		{name: "bad_remote_addr", checker: direct, remoteAddr: "nonsense", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				request.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				request.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			ip, err := tt.checker.ClientIP(request)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, ip.String())
		})
	}
}

func TestTrustedOnly(t *testing.T) {
	checker, err := New("192.168.1.0/24", WithTrustedProxies("127.0.0.0/8"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		checker    *IPChecker
		remoteAddr string
		realIP     string
		wantStatus int
	}{
		{name: "trusted_peer", checker: checker, remoteAddr: "192.168.1.10:1234", wantStatus: http.StatusOK},
		{name: "untrusted_peer", checker: checker, remoteAddr: "10.0.0.1:1234", wantStatus: http.StatusForbidden},
		{name: "trusted_via_proxy", checker: checker, remoteAddr: "127.0.0.1:1234", realIP: "192.168.1.10", wantStatus: http.StatusOK},
		{name: "spoofed_header", checker: checker, remoteAddr: "10.0.0.1:1234", realIP: "192.168.1.10", wantStatus: http.StatusForbidden},
		{name: "no_subnet", checker: &IPChecker{}, remoteAddr: "192.168.1.10:1234", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.checker.TrustedOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			request := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
			request.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				request.Header.Set("X-Real-IP", tt.realIP)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}
