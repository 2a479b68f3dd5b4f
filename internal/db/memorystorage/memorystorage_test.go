package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		ctx := context.Background()
		theStorage, err := New()
		require.NoError(t, err, "The memorystorage.New() should not return error")

		usr := &user.User{Email: "test@example.com", HashedPassword: "hash"}
		err = theStorage.CreateUser(ctx, usr)
		assert.NoError(t, err, "The `theStorage.CreateUser()` should not return error")
		assert.Equal(t, int64(1), usr.ID)

		err = theStorage.CreateUser(ctx, &user.User{Email: "test@example.com"})
		assert.ErrorIs(t, err, models.ErrUserExists)

		found, err := theStorage.GetUserByEmail(ctx, "test@example.com")
		require.NoError(t, err)
		assert.Equal(t, *usr, *found)

		_, err = theStorage.GetUserByID(ctx, 42)
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})

	t.Run("Book lifecycle", func(t *testing.T) {
		ctx := context.Background()
		theStorage, err := New()
		require.NoError(t, err)

		books, err := theStorage.ListBooks(ctx)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)

		first := &models.Book{Name: "First", Author: "A", PublishedYear: 2001, Summary: "S1"}
		second := &models.Book{Name: "Second", Author: "B", PublishedYear: 2002, Summary: "S2"}
		require.NoError(t, theStorage.CreateBook(ctx, first))
		require.NoError(t, theStorage.CreateBook(ctx, second))
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)

		newName := "First, revised"
		updated, err := theStorage.UpdateBook(ctx, first.ID, models.BookPatch{Name: &newName})
		require.NoError(t, err)
		assert.Equal(t, "First, revised", updated.Name)
		assert.Equal(t, "S1", updated.Summary)

		require.NoError(t, theStorage.DeleteBook(ctx, second.ID))
		assert.ErrorIs(t, theStorage.DeleteBook(ctx, second.ID), models.ErrBookNotFound)

		_, err = theStorage.GetBook(ctx, second.ID)
		assert.ErrorIs(t, err, models.ErrBookNotFound)

		_, err = theStorage.UpdateBook(ctx, second.ID, models.BookPatch{Name: &newName})
		assert.ErrorIs(t, err, models.ErrBookNotFound)

		books, err = theStorage.ListBooks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Book{*updated}, books)

		count, err := theStorage.GetNumberOfBooks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
