package gormdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

func newTestDB(t *testing.T) *GormDB {
	t.Helper()

	theStorage, err := New(
		filepath.Join(t.TempDir(), "test.db"),
		5*time.Second,
		WithDBPreReset(true),
	)
	require.NoError(t, err)
	require.NotNil(t, theStorage)
	t.Cleanup(func() {
		require.NoError(t, theStorage.Close())
	})

	return theStorage
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	theStorage := newTestDB(t)

	usr := &user.User{Email: "test@example.com", HashedPassword: "hash"}
	require.NoError(t, theStorage.CreateUser(ctx, usr))
	assert.NotZero(t, usr.ID)

	err := theStorage.CreateUser(ctx, &user.User{Email: "test@example.com", HashedPassword: "other"})
	assert.ErrorIs(t, err, models.ErrUserExists)

	byEmail, err := theStorage.GetUserByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.HashedPassword)

	byID, err := theStorage.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", byID.Email)

	_, err = theStorage.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = theStorage.GetUserByID(ctx, usr.ID+100)
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	count, err := theStorage.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.NoError(t, theStorage.Ping(ctx))
}

func TestBooks(t *testing.T) {
	ctx := context.Background()
	theStorage := newTestDB(t)

	books, err := theStorage.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	book := &models.Book{Name: "Test Book", Author: "Author", PublishedYear: 2021, Summary: "Summary"}
	require.NoError(t, theStorage.CreateBook(ctx, book))
	assert.NotZero(t, book.ID)

	stored, err := theStorage.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, *book, *stored)

	summary := "Updated Summary"
	updated, err := theStorage.UpdateBook(ctx, book.ID, models.BookPatch{Summary: &summary})
	require.NoError(t, err)
	assert.Equal(t, "Test Book", updated.Name)
	assert.Equal(t, "Updated Summary", updated.Summary)

	stored, err = theStorage.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, *updated, *stored)

	_, err = theStorage.UpdateBook(ctx, book.ID+1, models.BookPatch{Summary: &summary})
	assert.ErrorIs(t, err, models.ErrBookNotFound)

	count, err := theStorage.GetNumberOfBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, theStorage.DeleteBook(ctx, book.ID))
	assert.ErrorIs(t, theStorage.DeleteBook(ctx, book.ID), models.ErrBookNotFound)

	_, err = theStorage.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, models.ErrBookNotFound)
}

func TestInitDBClosesOnMigrationFailure(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "broken.db")
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A view occupying the books table name makes AutoMigrate fail.
	require.NoError(t, database.Exec("CREATE VIEW books AS SELECT 1 AS id").Error)

	sqlDB, err := database.DB()
	require.NoError(t, err)

	result, err := initDB(database, time.Second, &initOptions{})
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorContains(t, sqlDB.Ping(), "database is closed")
}
