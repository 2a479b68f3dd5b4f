// Package grpcserver exposes the bookstore operations over gRPC as the
// bookstore.BookService service.
package grpcserver

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bookstore/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

type tokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*user.User, error)
}

// NewServer builds a grpc.Server serving handler. Book methods require a
// token accepted by verifier.
func NewServer(handler BookServiceServer, verifier tokenVerifier) *grpc.Server {
	authInterceptor := interceptor.NewAuthInterceptor(verifier)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(AllMethods),
			authInterceptor.UnaryAuthInterceptor(BookMethods),
		),
	)
	RegisterBookServiceServer(server, handler)

	return server
}

// NewGRPCServer builds the server and a TCP listener bound to addr.
func NewGRPCServer(
	addr string,
	handler BookServiceServer,
	verifier tokenVerifier,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"in internal/grpcserver/server.go/NewGRPCServer(): error while `net.Listen()` calling: %w",
			err,
		)
	}

	return NewServer(handler, verifier), lis, nil
}
