// Package authenticator defines the bearer check the router depends on, so
// the check can be swapped at construction time.
package authenticator

import (
	"context"
	"net/http"

	"github.com/patric-chuzhbe/bookstore/internal/auth"
)

type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}

// Bypass lets every request through as the configured user. It is used by the
// router-level variant that mounts book routes without a token check.
type Bypass struct {
	UserID int64
}

func (b Bypass) AuthenticateUser(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), auth.UserIDKey, b.UserID)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
