package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bookstore.BookService"

// Full method names, as seen by interceptors.
const (
	MethodSignup     = "/" + ServiceName + "/Signup"
	MethodLogin      = "/" + ServiceName + "/Login"
	MethodCreateBook = "/" + ServiceName + "/CreateBook"
	MethodGetBook    = "/" + ServiceName + "/GetBook"
	MethodListBooks  = "/" + ServiceName + "/ListBooks"
	MethodUpdateBook = "/" + ServiceName + "/UpdateBook"
	MethodDeleteBook = "/" + ServiceName + "/DeleteBook"
)

// BookMethods lists the methods that require a bearer token.
var BookMethods = []string{
	MethodCreateBook,
	MethodGetBook,
	MethodListBooks,
	MethodUpdateBook,
	MethodDeleteBook,
}

// AllMethods lists every method of the service.
var AllMethods = append([]string{MethodSignup, MethodLogin}, BookMethods...)

// BookServiceServer is the server API of bookstore.BookService.
//
// Messages are protobuf well-known types: credentials, books and patches
// travel as Struct objects using the same field names as the HTTP API.
type BookServiceServer interface {
	Signup(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error)
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBook(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListBooks(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	UpdateBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteBook(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
}

func unaryMethod[Req proto.Message, Resp proto.Message](
	name string,
	newRequest func() Req,
	call func(srv BookServiceServer, ctx context.Context, req Req) (Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv interface{},
			ctx context.Context,
			dec func(interface{}) error,
			interceptor grpc.UnaryServerInterceptor,
		) (interface{}, error) {
			req := newRequest()
			if err := dec(req); err != nil {
				return nil, err
			}

			server := srv.(BookServiceServer)
			if interceptor == nil {
				return call(server, ctx, req)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(Req))
			}

			return interceptor(ctx, req, info, handler)
		},
	}
}

// BookServiceDesc describes bookstore.BookService for grpc.Server.RegisterService.
var BookServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Signup", func() *structpb.Struct { return &structpb.Struct{} }, BookServiceServer.Signup),
		unaryMethod("Login", func() *structpb.Struct { return &structpb.Struct{} }, BookServiceServer.Login),
		unaryMethod("CreateBook", func() *structpb.Struct { return &structpb.Struct{} }, BookServiceServer.CreateBook),
		unaryMethod("GetBook", func() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} }, BookServiceServer.GetBook),
		unaryMethod("ListBooks", func() *emptypb.Empty { return &emptypb.Empty{} }, BookServiceServer.ListBooks),
		unaryMethod("UpdateBook", func() *structpb.Struct { return &structpb.Struct{} }, BookServiceServer.UpdateBook),
		unaryMethod("DeleteBook", func() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} }, BookServiceServer.DeleteBook),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookstore.proto",
}

// RegisterBookServiceServer registers srv on s.
func RegisterBookServiceServer(s grpc.ServiceRegistrar, srv BookServiceServer) {
	s.RegisterService(&BookServiceDesc, srv)
}

// BookServiceClient is the client API of bookstore.BookService.
type BookServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookServiceClient(cc grpc.ClientConnInterface) *BookServiceClient {
	return &BookServiceClient{cc: cc}
}

func (c *BookServiceClient) Signup(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := &wrapperspb.StringValue{}
	if err := c.cc.Invoke(ctx, MethodSignup, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookServiceClient) Login(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, MethodLogin, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookServiceClient) CreateBook(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, MethodCreateBook, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookServiceClient) GetBook(ctx context.Context, req *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, MethodGetBook, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookServiceClient) ListBooks(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := &structpb.ListValue{}
	if err := c.cc.Invoke(ctx, MethodListBooks, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookServiceClient) UpdateBook(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, MethodUpdateBook, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookServiceClient) DeleteBook(ctx context.Context, req *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := &wrapperspb.StringValue{}
	if err := c.cc.Invoke(ctx, MethodDeleteBook, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
