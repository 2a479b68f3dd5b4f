// Package ipchecker resolves the client IP of an HTTP request and guards
// internal endpoints so that only a trusted subnet can reach them.
package ipchecker

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/bookstore/internal/logger"
)

// ErrNoClientIP is returned when no usable address can be found in a request.
var ErrNoClientIP = errors.New("cannot determine client IP")

// IPChecker validates client addresses against an optional trusted subnet.
// Forwarding headers are honoured only for connections coming from the
// trusted proxies subnet.
type IPChecker struct {
	trustedSubnet  *net.IPNet
	trustedProxies *net.IPNet
}

// Option configures an IPChecker.
type Option func(*IPChecker) error

// WithTrustedProxies makes ClientIP read X-Real-IP and X-Forwarded-For on
// connections from the CIDR proxies. An empty proxies keeps headers ignored.
func WithTrustedProxies(proxies string) Option {
	return func(checker *IPChecker) error {
		if proxies == "" {
			return nil
		}

		_, proxyNet, err := net.ParseCIDR(proxies)
		if err != nil {
			return fmt.Errorf("in internal/ipchecker/ipchecker.go/WithTrustedProxies(): error while `net.ParseCIDR()` calling: %w", err)
		}
		checker.trustedProxies = proxyNet

		return nil
	}
}

// New creates an IPChecker for the CIDR trustedSubnet (e.g. "192.168.1.0/24").
// An empty trustedSubnet disables the checker: Check then rejects everyone.
func New(trustedSubnet string, opts ...Option) (*IPChecker, error) {
	checker := &IPChecker{}

	if trustedSubnet != "" {
		_, allowedNet, err := net.ParseCIDR(trustedSubnet)
		if err != nil {
			return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
		}
		checker.trustedSubnet = allowedNet
	}

	for _, opt := range opts {
		if err := opt(checker); err != nil {
			return nil, err
		}
	}

	return checker, nil
}

// Check reports whether clientIP belongs to the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// IsTrustedSubnetEmpty returns true if no trusted subnet was configured.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

func (checker *IPChecker) isTrustedProxy(ip net.IP) bool {
	return checker.trustedProxies != nil && checker.trustedProxies.Contains(ip)
}

// RemoteIP returns the address of the connection peer.
func RemoteIP(request *http.Request) (net.IP, error) {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/RemoteIP(): error while `net.SplitHostPort()` calling: %w", err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, ErrNoClientIP
	}

	return ip, nil
}

// ClientIP returns the connection peer, unless the peer is a trusted proxy.
// Then it takes X-Real-IP, or else the right-most X-Forwarded-For entry
// that is not a trusted proxy itself.
func (checker *IPChecker) ClientIP(request *http.Request) (net.IP, error) {
	peer, err := RemoteIP(request)
	if err != nil {
		return nil, err
	}

	if !checker.isTrustedProxy(peer) {
		return peer, nil
	}

	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}

	hops := strings.Split(request.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			break
		}
		if !checker.isTrustedProxy(ip) {
			return ip, nil
		}
	}

	return peer, nil
}

// TrustedOnly is a middleware answering 403 to clients outside the trusted subnet.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			logger.Log.Debugln("no trusted subnet configured, rejecting", "uri", request.RequestURI)
			http.Error(response, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		clientIP, err := checker.ClientIP(request)
		if err != nil {
			logger.Log.Debugln("Error calling the `checker.ClientIP()`: ", err)
		}

		if !checker.Check(clientIP) {
			http.Error(response, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
