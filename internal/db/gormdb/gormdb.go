// Package gormdb provides a GORM-over-SQLite implementation of the storage
// interface. The schema is created with AutoMigrate on start.
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/patric-chuzhbe/bookstore/internal/models"
	"github.com/patric-chuzhbe/bookstore/internal/user"
)

// GormDB is a SQLite-backed storage driven through GORM.
type GormDB struct {
	database          *gorm.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops the tables before migrating. Useful for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens (or creates) the SQLite file at dbPath and migrates the schema.
func New(
	dbPath string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*GormDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("in internal/db/gormdb/gormdb.go/New(): error while `os.MkdirAll()` calling: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("in internal/db/gormdb/gormdb.go/New(): error while `gorm.Open()` calling: %w", err)
	}

	return initDB(database, connectionTimeout, options)
}

// initDB takes ownership of database: the pool is closed if any setup step fails.
func initDB(database *gorm.DB, connectionTimeout time.Duration, options *initOptions) (*GormDB, error) {
	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer, so the read-modify-write in UpdateBook
	// relies on this pool size for isolation.
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(database, options); err != nil {
		return nil, errors.Join(err, sqlDB.Close())
	}

	return &GormDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}, nil
}

func migrate(database *gorm.DB, options *initOptions) error {
	if options.DBPreReset {
		if err := database.Migrator().DropTable(&models.Book{}, &user.User{}); err != nil {
			return fmt.Errorf("in internal/db/gormdb/gormdb.go/migrate(): error while `DropTable()` calling: %w", err)
		}
	}

	if err := database.AutoMigrate(&user.User{}, &models.Book{}); err != nil {
		return fmt.Errorf("in internal/db/gormdb/gormdb.go/migrate(): error while `AutoMigrate()` calling: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}

func (db *GormDB) CreateUser(ctx context.Context, usr *user.User) error {
	err := db.database.WithContext(ctx).Create(usr).Error
	if isUniqueViolation(err) {
		return models.ErrUserExists
	}

	return err
}

func (db *GormDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var usr user.User
	err := db.database.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &usr, nil
}

func (db *GormDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	var usr user.User
	err := db.database.WithContext(ctx).First(&usr, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &usr, nil
}

func (db *GormDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	var count int64
	err := db.database.WithContext(ctx).Model(&user.User{}).Count(&count).Error

	return count, err
}

func (db *GormDB) CreateBook(ctx context.Context, book *models.Book) error {
	return db.database.WithContext(ctx).Create(book).Error
}

func (db *GormDB) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	var book models.Book
	err := db.database.WithContext(ctx).First(&book, bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (db *GormDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	err := db.database.WithContext(ctx).Order("id").Find(&books).Error
	if err != nil {
		return nil, err
	}

	return books, nil
}

func (db *GormDB) UpdateBook(ctx context.Context, bookID int64, patch models.BookPatch) (*models.Book, error) {
	var book models.Book
	err := db.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&book, bookID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrBookNotFound
		}
		if err != nil {
			return err
		}

		patch.Apply(&book)

		return tx.Save(&book).Error
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (db *GormDB) DeleteBook(ctx context.Context, bookID int64) error {
	result := db.database.WithContext(ctx).Delete(&models.Book{}, bookID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrBookNotFound
	}

	return nil
}

func (db *GormDB) GetNumberOfBooks(ctx context.Context) (int64, error) {
	var count int64
	err := db.database.WithContext(ctx).Model(&models.Book{}).Count(&count).Error

	return count, err
}

// Ping verifies the SQLite handle within the configured timeout.
func (db *GormDB) Ping(ctx context.Context) error {
	sqlDB, err := db.database.DB()
	if err != nil {
		return err
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return sqlDB.PingContext(ctxWithTimeout)
}

// Close releases the underlying connection pool.
func (db *GormDB) Close() error {
	sqlDB, err := db.database.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
