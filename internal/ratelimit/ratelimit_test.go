package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bookstore/internal/ipchecker"
)

func TestAllow(t *testing.T) {
	rl := New(1, 2)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestDisabled(t *testing.T) {
	rl := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
}

func TestCleanup(t *testing.T) {
	rl := New(1, 1)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(time.Minute)
	rl.Allow("10.0.0.2")

	rl.Cleanup(30 * time.Second)

	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func newTestHandler(rl *RateLimiter) http.Handler {
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func send(handler http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, "/login", nil)
	request.RemoteAddr = remoteAddr
	for key, value := range headers {
		request.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHandler(t *testing.T) {
	rl := New(1, 1)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	handler := newTestHandler(rl)

	assert.Equal(t, http.StatusOK, send(handler, "10.0.0.1:1111", nil).Code)

	limited := send(handler, "10.0.0.1:2222", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, send(handler, "10.0.0.2:1111", nil).Code)
}

func TestHandlerIgnoresForwardedHeaders(t *testing.T) {
	rl := New(0.001, 1)
	handler := newTestHandler(rl)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		codes = append(codes, send(handler, "203.0.113.7:4000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("10.9.9.%d", i),
			"X-Real-IP":       fmt.Sprintf("10.8.8.%d", i),
		}).Code)
	}

	assert.Equal(t, []int{
		http.StatusOK,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
	assert.Len(t, rl.visitors, 1)
}

func TestHandlerBehindTrustedProxy(t *testing.T) {
	checker, err := ipchecker.New("", ipchecker.WithTrustedProxies("127.0.0.0/8"))
	require.NoError(t, err)

	handler := newTestHandler(New(0.001, 1, WithClientIPResolver(checker)))

	viaProxy := func(clientIP string) int {
		return send(handler, "127.0.0.1:4000", map[string]string{"X-Real-IP": clientIP}).Code
	}

	assert.Equal(t, http.StatusOK, viaProxy("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, viaProxy("198.51.100.1"))
	assert.Equal(t, http.StatusOK, viaProxy("198.51.100.2"))

	// a client talking to the service directly cannot pick its bucket
	assert.Equal(t, http.StatusOK, send(handler, "203.0.113.7:4000", map[string]string{"X-Real-IP": "198.51.100.3"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, send(handler, "203.0.113.7:4000", map[string]string{"X-Real-IP": "198.51.100.4"}).Code)
}
