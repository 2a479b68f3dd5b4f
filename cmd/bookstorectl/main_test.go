package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bookstore/internal/auth"
	"github.com/patric-chuzhbe/bookstore/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/router"
	"github.com/patric-chuzhbe/bookstore/internal/service"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	theAuth := auth.New(db, []byte("bookstorectl-test-secret-key"), time.Minute)
	srv := httptest.NewServer(router.New(service.New(db, theAuth), theAuth))
	t.Cleanup(srv.Close)

	return srv
}

// execute runs bookstorectl with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestBookstorectl(t *testing.T) {
	srv := setupTestServer(t)

	out, err := execute(t, "testpassword\n", "--server", srv.URL, "signup", "--email", "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.MsgUserCreated+"\n", out)

	_, err = execute(t, "", "--server", srv.URL, "signup", "--email", "test@example.com", "--password", "x")
	assert.ErrorContains(t, err, "409")

	out, err = execute(t, "", "--server", srv.URL, "login", "--email", "test@example.com", "--password", "testpassword")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	withToken := func(args ...string) []string {
		return append([]string{"--server", srv.URL, "--token", token}, args...)
	}

	out, err = execute(t, "", withToken("books", "create",
		"--name", "Test Book", "--author", "Author", "--year", "2021", "--summary", "Summary")...)
	require.NoError(t, err)

	var created models.Book
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Positive(t, created.ID)
	id := strconv.FormatInt(created.ID, 10)

	out, err = execute(t, "", withToken("books", "update", id, "--year", "2022")...)
	require.NoError(t, err)

	var updated models.Book
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, 2022, updated.PublishedYear)
	assert.Equal(t, "Test Book", updated.Name)

	out, err = execute(t, "", withToken("books", "get", id)...)
	require.NoError(t, err)

	var fetched models.Book
	require.NoError(t, json.Unmarshal([]byte(out), &fetched))
	assert.Equal(t, updated, fetched)

	out, err = execute(t, "", withToken("books", "list")...)
	require.NoError(t, err)

	var books []models.Book
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	assert.Equal(t, []models.Book{updated}, books)

	out, err = execute(t, "", withToken("books", "delete", id)...)
	require.NoError(t, err)
	assert.Equal(t, models.MsgBookDeleted+"\n", out)

	_, err = execute(t, "", withToken("books", "get", id)...)
	assert.ErrorContains(t, err, "404")
}

func TestBookstorectlErrors(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{
			name:    "books_without_token",
			args:    []string{"--server", srv.URL, "--token", "", "books", "list"},
			wantErr: "401",
		},
		{
			name:    "bad_book_id",
			args:    []string{"--server", srv.URL, "books", "get", "abc"},
			wantErr: "invalid book id",
		},
		{
			name:    "empty_password",
			args:    []string{"--server", srv.URL, "login", "--email", "test@example.com"},
			wantErr: "password is required",
		},
		{
			name:    "missing_email",
			args:    []string{"--server", srv.URL, "login", "--password", "x"},
			wantErr: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
