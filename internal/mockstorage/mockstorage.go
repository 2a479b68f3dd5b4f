// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces used by the service and router packages.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

// StorageMock is a testify mock implementing storage.Storage.
//
// Use it in tests to simulate database behavior and failures.
type StorageMock struct {
	mock.Mock

	// OnCreateUser, if set, runs instead of the generic mock handler so a
	// test can assign the ID the way a real backend would.
	OnCreateUser func(ctx context.Context, usr *user.User) error
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CreateUser mocks storing a new user.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) error {
	if m.OnCreateUser != nil {
		return m.OnCreateUser(ctx, usr)
	}
	args := m.Called(ctx, usr)
	return args.Error(0)
}

// GetUserByEmail mocks a lookup by email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetUserByID mocks a lookup by ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetNumberOfUsers mocks the user counter.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// CreateBook mocks storing a new book.
func (m *StorageMock) CreateBook(ctx context.Context, book *models.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

// GetBook mocks a book lookup.
func (m *StorageMock) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	args := m.Called(ctx, bookID)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Error(1)
}

// ListBooks mocks listing every book.
func (m *StorageMock) ListBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

// UpdateBook mocks a partial update.
func (m *StorageMock) UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error) {
	args := m.Called(ctx, bookID, patch)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Error(1)
}

// DeleteBook mocks a book removal.
func (m *StorageMock) DeleteBook(ctx context.Context, bookID int64) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}

// GetNumberOfBooks mocks the book counter.
func (m *StorageMock) GetNumberOfBooks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
