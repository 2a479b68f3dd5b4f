// Package models holds the request, response and domain types shared by
// the storage backends, the service layer and both transports.
package models

import "errors"

// Book is a persisted book record.
type Book struct {
	ID            int64  `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	Name          string `json:"name" db:"name" gorm:"not null"`
	Author        string `json:"author" db:"author" gorm:"not null"`
	PublishedYear int    `json:"published_year" db:"published_year" gorm:"not null"`
	Summary       string `json:"book_summary" db:"book_summary" gorm:"column:book_summary;not null"`
}

// BookPayload is the body of a book creation request.
type BookPayload struct {
	Name          string `json:"name" validate:"required"`
	Author        string `json:"author" validate:"required"`
	PublishedYear int    `json:"published_year" validate:"required,min=-9999,max=9999"`
	Summary       string `json:"book_summary" validate:"required"`
}

// ToBook builds a Book without an ID from the payload.
func (p BookPayload) ToBook() *Book {
	return &Book{
		Name:          p.Name,
		Author:        p.Author,
		PublishedYear: p.PublishedYear,
		Summary:       p.Summary,
	}
}

// BookPatch is the body of a book update request. Nil fields are left untouched.
type BookPatch struct {
	Name          *string `json:"name" validate:"omitempty,min=1"`
	Author        *string `json:"author" validate:"omitempty,min=1"`
	PublishedYear *int    `json:"published_year" validate:"omitempty,ne=0,min=-9999,max=9999"`
	Summary       *string `json:"book_summary" validate:"omitempty,min=1"`
}

// Apply copies every non-nil field of the patch into book.
func (p BookPatch) Apply(book *Book) {
	if p.Name != nil {
		book.Name = *p.Name
	}
	if p.Author != nil {
		book.Author = *p.Author
	}
	if p.PublishedYear != nil {
		book.PublishedYear = *p.PublishedYear
	}
	if p.Summary != nil {
		book.Summary = *p.Summary
	}
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,passwordbytes"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// InternalStatsResponse is served by the trusted-subnet-only stats endpoint.
type InternalStatsResponse struct {
	Books int64 `json:"books"`
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)

const (
	MsgUserCreated  = "User created successfully"
	MsgBookDeleted  = "Book deleted successfully"
	TokenTypeBearer = "bearer"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this email already exists")
)
