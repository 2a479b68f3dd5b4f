// Package user defines the user model used by authentication and by the
// credential storage.
package user

import "strings"

// User represents a registered account.
type User struct {
	// ID is assigned by the storage on creation.
	ID int64 `db:"id" gorm:"primaryKey;autoIncrement"`

	// Email is unique across users and stored normalized.
	Email string `db:"email" gorm:"uniqueIndex;size:320;not null"`

	// HashedPassword is a bcrypt hash, never the raw password.
	HashedPassword string `db:"hashed_password" gorm:"not null"`
}

// NormalizeEmail trims and lowercases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
