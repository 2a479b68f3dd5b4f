// Package auth provides password hashing, JWT access token issuance and
// verification, and the bearer-token middleware guarding the book routes.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/bookstore/internal/logger"
	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)
}

// Auth issues and verifies access tokens.
type Auth struct {
	// db is used to make sure the token subject still exists.
	db userKeeper

	// signingKey is the HMAC secret for HS256 tokens.
	signingKey []byte

	// tokenTTL is how long an issued token stays valid.
	tokenTTL time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key holding the authenticated user's ID (int64).
const UserIDKey ContextKey = "userID"

// ErrInvalidToken covers every reason a token is rejected.
var ErrInvalidToken = errors.New("invalid or expired token")

// New creates an Auth signing tokens with signingKey that live for tokenTTL.
func New(db userKeeper, signingKey []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		db:         db,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken builds a signed access token for usr.
func (a *Auth) IssueToken(usr *user.User) (string, error) {
	now := a.now()

	return a.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(usr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		Email: usr.Email,
	})
}

// BuildJWTString signs claims with HS256.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies tokenString and returns its subject.
// Tokens without an expiry are rejected.
func (a *Auth) GetUserIDFromToken(tokenString string) (int64, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.ExpiresAt == nil || !a.now().Before(claims.ExpiresAt.Time) {
		return 0, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}

	return userID, nil
}

// Verify checks the token and that its user still exists.
func (a *Auth) Verify(ctx context.Context, tokenString string) (*user.User, error) {
	userID, err := a.GetUserIDFromToken(tokenString)
	if err != nil {
		return nil, err
	}

	usr, err := a.db.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

// AuthenticateUser is an HTTP middleware that rejects requests without a
// valid bearer token and stores the user ID in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString, ok := BearerToken(request.Header.Get("Authorization"))
		if !ok {
			unauthorized(response, "Not authenticated")
			return
		}

		usr, err := a.Verify(request.Context(), tokenString)
		if errors.Is(err, ErrInvalidToken) {
			logger.Log.Debugln("Error calling the `a.Verify()`: ", zap.Error(err))
			unauthorized(response, "Invalid or expired token")
			return
		}
		if err != nil {
			logger.Log.Errorln("Error calling the `a.Verify()`: ", zap.Error(err))
			http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func unauthorized(response http.ResponseWriter, message string) {
	response.Header().Set("WWW-Authenticate", "Bearer")
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(response).Encode(models.ErrorResponse{Error: message})
}
