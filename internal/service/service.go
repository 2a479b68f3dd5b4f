// Package service implements the bookstore operations shared by the HTTP and
// gRPC transports: signup, login and book CRUD.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/bookstore/internal/auth"
	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type bookKeeper interface {
	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, bookID int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, bookID int64) error
	GetNumberOfBooks(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	bookKeeper
	pinger
}

type tokenIssuer interface {
	IssueToken(usr *user.User) (string, error)
}

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("incorrect email or password")

// ErrPasswordTooLong is returned by Signup for a password bcrypt cannot hash.
var ErrPasswordTooLong = fmt.Errorf("password must not exceed %d bytes", models.MaxPasswordBytes)

// ErrUserExists is returned by Signup when the email is already registered.
var ErrUserExists = models.ErrUserExists

// ErrBookNotFound is returned by the book operations for an unknown ID.
var ErrBookNotFound = models.ErrBookNotFound

type Service struct {
	db     storage
	tokens tokenIssuer
}

func New(db storage, tokens tokenIssuer) *Service {
	return &Service{
		db:     db,
		tokens: tokens,
	}
}

// Signup registers a new user with a bcrypt-hashed password.
func (s *Service) Signup(ctx context.Context, email, password string) error {
	if len(password) > models.MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	err = s.db.CreateUser(ctx, &user.User{
		Email:          user.NormalizeEmail(email),
		HashedPassword: hash,
	})
	if err != nil && !errors.Is(err, ErrUserExists) {
		return fmt.Errorf("create user: %w", err)
	}

	return err
}

// Login checks the credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	usr, err := s.db.GetUserByEmail(ctx, user.NormalizeEmail(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("get user by email: %w", err)
	}

	if !auth.CheckPassword(usr.HashedPassword, password) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.IssueToken(usr)
}

func (s *Service) CreateBook(ctx context.Context, payload models.BookPayload) (*models.Book, error) {
	book := payload.ToBook()
	if err := s.db.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	return book, nil
}

func (s *Service) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	return s.db.GetBook(ctx, bookID)
}

// ListBooks returns every stored book; the result is never nil.
func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := s.db.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}

	return books, nil
}

// UpdateBook changes only the fields present in patch.
func (s *Service) UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error) {
	return s.db.UpdateBook(ctx, bookID, patch)
}

func (s *Service) DeleteBook(ctx context.Context, bookID int64) error {
	return s.db.DeleteBook(ctx, bookID)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns the number of stored books and registered users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	books, err := s.db.GetNumberOfBooks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Books: books,
		Users: users,
	}, nil
}
