// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// queryTimeout bounds every statement issued by the models.
const queryTimeout = 3 * time.Second

var (
	// ErrRecordNotFound is returned when a query finds no matching row.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the users_email_key constraint fires.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrDuplicateLike is returned when a user already liked the book.
	ErrDuplicateLike = errors.New("duplicate like")
)

// Postgres SQLSTATE codes the models translate into sentinel errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// classify maps driver errors onto the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrDuplicateEmail
			case "unique_user_book_like":
				return ErrDuplicateLike
			}
		case pqForeignKeyViolation:
			return ErrRecordNotFound
		}
	}
	return err
}

// requireRow turns a zero-row UPDATE or DELETE into ErrRecordNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// BookStore is the persistence contract for listings.
type BookStore interface {
	Insert(ctx context.Context, book *Book) error
	Get(ctx context.Context, id int64) (*Book, error)
	Update(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status Status) error
	GetAll(ctx context.Context, filters BookFilters) ([]*Book, Metadata, error)
	GetForSeller(ctx context.Context, sellerID int64, status Status, filters Filters) ([]*Book, Metadata, error)
	GetLikedBy(ctx context.Context, userID int64, filters Filters) ([]*Book, Metadata, error)
}

type UserStore interface {
	Insert(ctx context.Context, user *User) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

type LikeStore interface {
	Insert(ctx context.Context, like *Like) error
	Delete(ctx context.Context, userID, bookID int64) error
	Exists(ctx context.Context, userID, bookID int64) (bool, error)
}

type CategoryStore interface {
	Get(ctx context.Context, id int64) (*Category, error)
	GetAll(ctx context.Context) ([]*Category, error)
	Upsert(ctx context.Context, category *Category) error
}

type LanguageStore interface {
	Get(ctx context.Context, id int64) (*Language, error)
	GetAll(ctx context.Context) ([]*Language, error)
	Upsert(ctx context.Context, language *Language) error
}

// Models is a top-level container that groups all database model types together.
// It is passed around the application via applicationDependencies so every handler
// has access to the database without importing sql directly.
type Models struct {
	Books      BookStore
	Users      UserStore
	Likes      LikeStore
	Categories CategoryStore
	Languages  LanguageStore
}

// NewModels constructs a Models value wired up to the given database connection pool.
func NewModels(db *sql.DB) Models {
	return Models{
		Books:      BookModel{DB: db},
		Users:      UserModel{DB: db},
		Likes:      LikeModel{DB: db},
		Categories: CategoryModel{DB: db},
		Languages:  LanguageModel{DB: db},
	}
}
