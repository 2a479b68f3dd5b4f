// Package memorystorage keeps users and books in process memory.
// It is the fallback backend when no database is configured.
package memorystorage

import (
	"context"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

type MemoryStorage struct {
	mu sync.RWMutex

	users       map[int64]user.User
	emailToUser map[string]int64
	nextUserID  int64
	books       map[int64]models.Book
	nextBookID  int64
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:       map[int64]user.User{},
		emailToUser: map[string]int64{},
		nextUserID:  1,
		books:       map[int64]models.Book{},
		nextBookID:  1,
	}, nil
}

func (s *MemoryStorage) CreateUser(ctx context.Context, usr *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailToUser[usr.Email]; exists {
		return models.ErrUserExists
	}

	usr.ID = s.nextUserID
	s.nextUserID++
	s.users[usr.ID] = *usr
	s.emailToUser[usr.Email] = usr.ID

	return nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, found := s.emailToUser[email]
	if !found {
		return nil, models.ErrUserNotFound
	}
	usr := s.users[userID]

	return &usr, nil
}

func (s *MemoryStorage) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.users[userID]
	if !found {
		return nil, models.ErrUserNotFound
	}

	return &usr, nil
}

func (s *MemoryStorage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.users)), nil
}

func (s *MemoryStorage) CreateBook(ctx context.Context, book *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book.ID = s.nextBookID
	s.nextBookID++
	s.books[book.ID] = *book

	return nil
}

func (s *MemoryStorage) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, found := s.books[bookID]
	if !found {
		return nil, models.ErrBookNotFound
	}

	return &book, nil
}

func (s *MemoryStorage) ListBooks(ctx context.Context) ([]models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.books) == 0 {
		return []models.Book{}, nil
	}

	books := funk.Values(s.books).([]models.Book)
	sort.Slice(books, func(i, j int) bool {
		return books[i].ID < books[j].ID
	})

	return books, nil
}

func (s *MemoryStorage) UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, found := s.books[bookID]
	if !found {
		return nil, models.ErrBookNotFound
	}
	patch.Apply(&book)
	s.books[bookID] = book

	return &book, nil
}

func (s *MemoryStorage) DeleteBook(ctx context.Context, bookID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.books[bookID]; !found {
		return models.ErrBookNotFound
	}
	delete(s.books, bookID)

	return nil
}

func (s *MemoryStorage) GetNumberOfBooks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.books)), nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
