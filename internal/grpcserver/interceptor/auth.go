package interceptor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/bookstore/internal/auth"
	"github.com/patric-chuzhbe/bookstore/internal/logger"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

type tokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*user.User, error)
}

type AuthInterceptor struct {
	verifier tokenVerifier
}

func NewAuthInterceptor(verifier tokenVerifier) *AuthInterceptor {
	return &AuthInterceptor{verifier: verifier}
}

func tokenFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", false
	}

	if token, ok := auth.BearerToken(values[0]); ok {
		return token, true
	}

	return values[0], true
}

// UnaryAuthInterceptor requires a valid bearer token in the "authorization"
// metadata for the protectedMethods and attaches the user ID to the context.
func (a *AuthInterceptor) UnaryAuthInterceptor(protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		tokenString, ok := tokenFromMetadata(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "not authenticated")
		}

		usr, err := a.verifier.Verify(ctx, tokenString)
		if errors.Is(err, auth.ErrInvalidToken) {
			logger.Log.Debugln("Error calling the `a.verifier.Verify()`: ", zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		if err != nil {
			logger.Log.Errorln("Error calling the `a.verifier.Verify()`: ", zap.Error(err))
			return nil, status.Error(codes.Internal, "could not verify token")
		}

		ctxWithUser := context.WithValue(ctx, auth.UserIDKey, usr.ID)
		return handler(ctxWithUser, req)
	}
}
