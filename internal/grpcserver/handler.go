package grpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/patric-chuzhbe/bookstore/internal/logger"
	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/service"
)

type bookstore interface {
	Signup(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
	CreateBook(ctx context.Context, payload models.BookPayload) (*models.Book, error)
	GetBook(ctx context.Context, bookID int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, bookID int64) error
}

// BookHandler implements BookServiceServer on top of the bookstore service.
type BookHandler struct {
	svc      bookstore
	validate *validator.Validate
}

func NewBookHandler(svc bookstore) *BookHandler {
	return &BookHandler{
		svc:      svc,
		validate: models.NewValidator(),
	}
}

func toStatus(err error, action string) error {
	switch {
	case errors.Is(err, service.ErrPasswordTooLong):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUserExists):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "incorrect email or password")
	case errors.Is(err, service.ErrBookNotFound):
		return status.Error(codes.NotFound, "book not found")
	default:
		logger.Log.Errorln("gRPC call failed", "action", action, zap.Error(err))
		return status.Errorf(codes.Internal, "failed to %s", action)
	}
}

// decodeStruct converts a Struct message into dst, rejecting unknown fields,
// and validates the result.
func (h *BookHandler) decodeStruct(src *structpb.Struct, dst interface{}) error {
	raw, err := json.Marshal(src.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	if err := h.validate.Struct(dst); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	return nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	return structpb.NewStruct(fields)
}

func bookToStruct(book *models.Book) (*structpb.Struct, error) {
	result, err := toStruct(book)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode book: %v", err)
	}

	return result, nil
}

func validBookID(bookID int64) error {
	if bookID <= 0 {
		return status.Error(codes.InvalidArgument, "book id must be a positive integer")
	}

	return nil
}

func (h *BookHandler) Signup(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	var credentials models.CredentialsRequest
	if err := h.decodeStruct(req, &credentials); err != nil {
		return nil, err
	}

	if err := h.svc.Signup(ctx, credentials.Email, credentials.Password); err != nil {
		return nil, toStatus(err, "sign up")
	}

	return wrapperspb.String(models.MsgUserCreated), nil
}

func (h *BookHandler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var credentials models.CredentialsRequest
	if err := h.decodeStruct(req, &credentials); err != nil {
		return nil, err
	}

	token, err := h.svc.Login(ctx, credentials.Email, credentials.Password)
	if err != nil {
		return nil, toStatus(err, "log in")
	}

	return structpb.NewStruct(map[string]interface{}{
		"access_token": token,
		"token_type":   models.TokenTypeBearer,
	})
}

func (h *BookHandler) CreateBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var payload models.BookPayload
	if err := h.decodeStruct(req, &payload); err != nil {
		return nil, err
	}

	book, err := h.svc.CreateBook(ctx, payload)
	if err != nil {
		return nil, toStatus(err, "create book")
	}

	return bookToStruct(book)
}

func (h *BookHandler) GetBook(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if err := validBookID(req.GetValue()); err != nil {
		return nil, err
	}

	book, err := h.svc.GetBook(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err, "get book")
	}

	return bookToStruct(book)
}

func (h *BookHandler) ListBooks(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	books, err := h.svc.ListBooks(ctx)
	if err != nil {
		return nil, toStatus(err, "list books")
	}

	values := make([]interface{}, 0, len(books))
	for i := range books {
		item, err := bookToStruct(&books[i])
		if err != nil {
			return nil, err
		}
		values = append(values, item.AsMap())
	}

	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode books: %v", err)
	}

	return list, nil
}

// UpdateBook expects the book "id" next to the patched fields.
func (h *BookHandler) UpdateBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()

	rawID, ok := fields["id"].(float64)
	if !ok || rawID != math.Trunc(rawID) || rawID < 1 || rawID >= math.MaxInt64 {
		return nil, status.Error(codes.InvalidArgument, "book id must be a positive integer")
	}
	bookID := int64(rawID)
	if err := validBookID(bookID); err != nil {
		return nil, err
	}
	delete(fields, "id")

	patchStruct, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var patch models.BookPatch
	if err := h.decodeStruct(patchStruct, &patch); err != nil {
		return nil, err
	}

	book, err := h.svc.UpdateBook(ctx, bookID, patch)
	if err != nil {
		return nil, toStatus(err, "update book")
	}

	return bookToStruct(book)
}

func (h *BookHandler) DeleteBook(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	if err := validBookID(req.GetValue()); err != nil {
		return nil, err
	}

	if err := h.svc.DeleteBook(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err, fmt.Sprintf("delete book %d", req.GetValue()))
	}

	return wrapperspb.String(models.MsgBookDeleted), nil
}
