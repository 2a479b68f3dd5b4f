// Package postgresdb provides a PostgreSQL-based implementation of the storage
// interface for persisting users and books. The schema is managed by goose
// migrations embedded into the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed storage.
type PostgresDB struct {
	database          *sqlx.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every public table before migrating.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to PostgreSQL, runs the embedded migrations and returns
// a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	return initDB(ctx, database, connectionTimeout, options)
}

// initDB takes ownership of database: it is closed if any setup step fails.
func initDB(
	ctx context.Context,
	database *sql.DB,
	connectionTimeout time.Duration,
	options *initOptions,
) (*PostgresDB, error) {
	result := newWithDB(database, connectionTimeout)

	if err := result.setup(ctx, options); err != nil {
		return nil, errors.Join(err, result.Close())
	}

	return result, nil
}

func (db *PostgresDB) setup(ctx context.Context, options *initOptions) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/setup(): error while `db.Ping()` calling: %w",
			err,
		)
	}

	if options.DBPreReset {
		if err := db.resetDB(ctx); err != nil {
			return err
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/setup(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.UpContext(ctx, db.database.DB, "migrations"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/setup(): error while `goose.UpContext()` calling: %w",
			err,
		)
	}

	return nil
}

func newWithDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          sqlx.NewDb(database, "pgx"),
		connectionTimeout: connectionTimeout,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CreateUser inserts a new user and stores the generated ID in usr.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) error {
	err := db.database.QueryRowxContext(
		ctx,
		`INSERT INTO users (email, hashed_password) VALUES ($1, $2) RETURNING id`,
		usr.Email,
		usr.HashedPassword,
	).Scan(&usr.ID)
	if isUniqueViolation(err) {
		return models.ErrUserExists
	}

	return err
}

// GetUserByEmail fetches a user by the normalized email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var usr user.User
	err := db.database.GetContext(
		ctx,
		&usr,
		`SELECT id, email, hashed_password FROM users WHERE email = $1`,
		email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &usr, nil
}

// GetUserByID fetches a user by ID.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	var usr user.User
	err := db.database.GetContext(
		ctx,
		&usr,
		`SELECT id, email, hashed_password FROM users WHERE id = $1`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &usr, nil
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	var count int64
	err := db.database.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)

	return count, err
}

// CreateBook inserts book and stores the generated ID in it.
func (db *PostgresDB) CreateBook(ctx context.Context, book *models.Book) error {
	return db.database.QueryRowxContext(
		ctx,
		`
			INSERT INTO books (name, author, published_year, book_summary)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		book.Name,
		book.Author,
		book.PublishedYear,
		book.Summary,
	).Scan(&book.ID)
}

func (db *PostgresDB) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	var book models.Book
	err := db.database.GetContext(
		ctx,
		&book,
		`SELECT id, name, author, published_year, book_summary FROM books WHERE id = $1`,
		bookID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (db *PostgresDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	err := db.database.SelectContext(
		ctx,
		&books,
		`SELECT id, name, author, published_year, book_summary FROM books ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}

	return books, nil
}

// UpdateBook locks the row, applies patch and writes it back in one transaction.
func (db *PostgresDB) UpdateBook(
	ctx context.Context,
	bookID int64,
	patch models.BookPatch,
) (*models.Book, error) {
	transaction, err := db.database.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = transaction.Rollback()
	}()

	var book models.Book
	err = transaction.GetContext(
		ctx,
		&book,
		`SELECT id, name, author, published_year, book_summary FROM books WHERE id = $1 FOR UPDATE`,
		bookID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}

	patch.Apply(&book)

	_, err = transaction.ExecContext(
		ctx,
		`
			UPDATE books
				SET name = $1, author = $2, published_year = $3, book_summary = $4
				WHERE id = $5
		`,
		book.Name,
		book.Author,
		book.PublishedYear,
		book.Summary,
		book.ID,
	)
	if err != nil {
		return nil, err
	}

	if err := transaction.Commit(); err != nil {
		return nil, err
	}

	return &book, nil
}

func (db *PostgresDB) DeleteBook(ctx context.Context, bookID int64) error {
	result, err := db.database.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrBookNotFound
	}

	return nil
}

func (db *PostgresDB) GetNumberOfBooks(ctx context.Context) (int64, error) {
	var count int64
	err := db.database.GetContext(ctx, &count, `SELECT COUNT(*) FROM books`)

	return count, err
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
