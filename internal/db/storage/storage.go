// Package storage declares the persistence contract every backend implements.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

// UserKeeper is the credential store.
type UserKeeper interface {
	// CreateUser stores usr and sets its ID. Returns models.ErrUserExists on a duplicate email.
	CreateUser(ctx context.Context, usr *user.User) error

	// GetUserByEmail returns models.ErrUserNotFound when nothing matches.
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// GetUserByID returns models.ErrUserNotFound when nothing matches.
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

// BookKeeper is the book store. Lookups of missing IDs return models.ErrBookNotFound.
type BookKeeper interface {
	// CreateBook stores book and sets its ID.
	CreateBook(ctx context.Context, book *models.Book) error

	GetBook(ctx context.Context, bookID int64) (*models.Book, error)

	// ListBooks returns every book ordered by ID.
	ListBooks(ctx context.Context) ([]models.Book, error)

	// UpdateBook applies patch atomically and returns the stored result.
	UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error)

	DeleteBook(ctx context.Context, bookID int64) error

	GetNumberOfBooks(ctx context.Context) (int64, error)
}

type Storage interface {
	UserKeeper
	BookKeeper
	Ping(ctx context.Context) error
	Close() error
}
