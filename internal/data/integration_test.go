//go:build integration
// +build integration

package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container, applies the migrations and
// returns a connection pool to it.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("kitobchi"),
		postgres.WithUsername("kitobchi"),
		postgres.WithPassword("kitobchi"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	again, err := Migrate(ctx, db)
	require.NoError(t, err)
	require.Empty(t, again, "migrations must be idempotent")

	return db
}

func newUser(t *testing.T, m Models, email string) *User {
	t.Helper()
	u := &User{Email: email, PasswordHash: "hash"}
	require.NoError(t, m.Users.Insert(context.Background(), u))
	return u
}

func newBook(t *testing.T, m Models, sellerID int64, title string, status Status) *Book {
	t.Helper()
	ctx := context.Background()
	b := CreateBookInput{Title: title, Author: "Alisher Navoiy", ListingType: ListingSell, Price: ptr(10.0)}.Book(sellerID)
	require.NoError(t, m.Books.Insert(ctx, b))
	if status != StatusPending {
		require.NoError(t, m.Books.SetStatus(ctx, b.ID, status))
		b.Status = status
	}
	return b
}

func TestIntegrationMarketplace(t *testing.T) {
	db := setupTestDB(t)
	m := NewModels(db)
	ctx := context.Background()

	t.Run("unique email", func(t *testing.T) {
		newUser(t, m, "dup@example.com")
		err := m.Users.Insert(ctx, &User{Email: "dup@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("price coupling enforced by schema", func(t *testing.T) {
		seller := newUser(t, m, "check@example.com")
		b := &Book{Title: "t", Author: "a", SellerID: seller.ID, ListingType: ListingFree, Price: ptr(5.0)}
		assert.Error(t, m.Books.Insert(ctx, b))
	})

	t.Run("like once per user and book", func(t *testing.T) {
		seller := newUser(t, m, "seller-like@example.com")
		buyer := newUser(t, m, "buyer-like@example.com")
		book := newBook(t, m, seller.ID, "Xamsa", StatusApproved)

		require.NoError(t, m.Likes.Insert(ctx, &Like{UserID: buyer.ID, BookID: book.ID}))
		assert.ErrorIs(t, m.Likes.Insert(ctx, &Like{UserID: buyer.ID, BookID: book.ID}), ErrDuplicateLike)

		require.NoError(t, m.Likes.Delete(ctx, buyer.ID, book.ID))
		assert.ErrorIs(t, m.Likes.Delete(ctx, buyer.ID, book.ID), ErrRecordNotFound)
		require.NoError(t, m.Likes.Insert(ctx, &Like{UserID: buyer.ID, BookID: book.ID}))

		assert.ErrorIs(t, m.Likes.Insert(ctx, &Like{UserID: buyer.ID, BookID: 999999}), ErrRecordNotFound)
	})

	t.Run("cascades and set null", func(t *testing.T) {
		seller := newUser(t, m, "cascade@example.com")
		cat := &Category{Name: "Poetry", Slug: "poetry"}
		require.NoError(t, m.Categories.Upsert(ctx, cat))

		b := CreateBookInput{Title: "G'azallar", Author: "Bobur", ListingType: ListingFree, CategoryID: &cat.ID}.Book(seller.ID)
		require.NoError(t, m.Books.Insert(ctx, b))
		require.NoError(t, m.Likes.Insert(ctx, &Like{UserID: seller.ID, BookID: b.ID}))

		_, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, cat.ID)
		require.NoError(t, err)
		got, err := m.Books.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)

		_, err = db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, seller.ID)
		require.NoError(t, err)
		_, err = m.Books.Get(ctx, b.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
		liked, err := m.Likes.Exists(ctx, seller.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, liked)
	})

	t.Run("public listing is approved only and paginated", func(t *testing.T) {
		seller := newUser(t, m, "pager@example.com")
		for i := 0; i < 15; i++ {
			newBook(t, m, seller.ID, fmt.Sprintf("Paged %02d", i), StatusApproved)
		}
		newBook(t, m, seller.ID, "Paged hidden", StatusPending)
		newBook(t, m, seller.ID, "Paged rejected", StatusRejected)

		books, meta, err := m.Books.GetAll(ctx, BookFilters{Search: "paged", Filters: Filters{Page: 2, PageSize: 10}})
		require.NoError(t, err)
		assert.Len(t, books, 5)
		assert.Equal(t, Metadata{Total: 15, Page: 2, PageSize: 10, TotalPages: 2}, meta)
		for _, b := range books {
			assert.Equal(t, StatusApproved, b.Status)
		}

		own, meta, err := m.Books.GetForSeller(ctx, seller.ID, "", Filters{Page: 1, PageSize: 100})
		require.NoError(t, err)
		assert.Len(t, own, 17)
		assert.Equal(t, 17, meta.Total)

		pending, _, err := m.Books.GetForSeller(ctx, seller.ID, StatusPending, Filters{Page: 1, PageSize: 100})
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("saved listings ordered by like time", func(t *testing.T) {
		seller := newUser(t, m, "saved-seller@example.com")
		reader := newUser(t, m, "saved-reader@example.com")
		first := newBook(t, m, seller.ID, "First liked", StatusApproved)
		second := newBook(t, m, seller.ID, "Second liked", StatusPending)

		require.NoError(t, m.Likes.Insert(ctx, &Like{UserID: reader.ID, BookID: first.ID}))
		require.NoError(t, m.Likes.Insert(ctx, &Like{UserID: reader.ID, BookID: second.ID}))

		books, meta, err := m.Books.GetLikedBy(ctx, reader.ID, Filters{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, second.ID, books[0].ID)
		assert.Equal(t, first.ID, books[1].ID)
		assert.Equal(t, 1, meta.TotalPages)
	})

	t.Run("update persists", func(t *testing.T) {
		seller := newUser(t, m, "update@example.com")
		b := newBook(t, m, seller.ID, "Before", StatusApproved)
		b.Title = "After"
		b.Images = []string{"https://img.example.com/1.jpg"}
		require.NoError(t, m.Books.Update(ctx, b))

		got, err := m.Books.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", got.Title)
		assert.Equal(t, []string{"https://img.example.com/1.jpg"}, got.Images)
		assert.Equal(t, StatusApproved, got.Status)

		require.NoError(t, m.Books.Delete(ctx, b.ID))
		assert.ErrorIs(t, m.Books.Delete(ctx, b.ID), ErrRecordNotFound)
	})
}
