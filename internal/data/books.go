package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting listings.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

const bookColumns = `b.id, b.title, b.author, b.description, b.images, b.seller_id, b.category_id,
	b.language_id, b.listing_type, b.price, b.location, b.status, b.created_at, b.updated_at`

func scanBook(row interface{ Scan(...any) error }, book *Book) error {
	return row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		pq.Array(&book.Images),
		&book.SellerID,
		&book.CategoryID,
		&book.LanguageID,
		&book.ListingType,
		&book.Price,
		&book.Location,
		&book.Status,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
}

// Insert adds a new listing. The database-assigned id, status, created_at
// and updated_at values are written back into book.
func (m BookModel) Insert(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (title, author, description, images, seller_id, category_id, language_id, listing_type, price, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, status, created_at, updated_at`

	if book.Images == nil {
		book.Images = []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query,
		book.Title,
		book.Author,
		book.Description,
		pq.Array(book.Images),
		book.SellerID,
		book.CategoryID,
		book.LanguageID,
		book.ListingType,
		book.Price,
		book.Location,
	).Scan(&book.ID, &book.Status, &book.CreatedAt, &book.UpdatedAt)
	return classify(err)
}

// Get retrieves a single listing by its primary key regardless of status.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(ctx context.Context, id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var book Book
	err := scanBook(m.DB.QueryRowContext(ctx, query, id), &book)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &book, nil
}

// Update saves the editable fields of book. Status and seller are never
// changed here; updated_at is refreshed and scanned back into the struct.
func (m BookModel) Update(ctx context.Context, book *Book) error {
	query := `
		UPDATE books
		SET title = $1, author = $2, description = $3, images = $4, category_id = $5,
		    language_id = $6, listing_type = $7, price = $8, location = $9, updated_at = now()
		WHERE id = $10
		RETURNING updated_at`

	if book.Images == nil {
		book.Images = []string{}
	}

	args := []any{
		book.Title,
		book.Author,
		book.Description,
		pq.Array(book.Images),
		book.CategoryID,
		book.LanguageID,
		book.ListingType,
		book.Price,
		book.Location,
		book.ID,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return classify(m.DB.QueryRowContext(ctx, query, args...).Scan(&book.UpdatedAt))
}

// Delete removes the listing; its likes go with it through ON DELETE CASCADE.
// Returns ErrRecordNotFound if no matching record exists.
func (m BookModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetStatus moves a listing between moderation states.
func (m BookModel) SetStatus(ctx context.Context, id int64, status Status) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx,
		`UPDATE books SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetAll returns one page of approved listings matching filters, newest first.
func (m BookModel) GetAll(ctx context.Context, filters BookFilters) ([]*Book, Metadata, error) {
	c := filters.conditions()
	from := `FROM books b ` + c.where()
	return m.list(ctx, from, `ORDER BY b.created_at DESC, b.id DESC`, c, filters.Filters)
}

// GetForSeller returns the seller's own listings in any moderation state,
// optionally narrowed to one status.
func (m BookModel) GetForSeller(ctx context.Context, sellerID int64, status Status, filters Filters) ([]*Book, Metadata, error) {
	c := &conditions{}
	c.add("b.seller_id = %s", sellerID)
	if status != "" {
		c.add("b.status = %s", string(status))
	}
	from := `FROM books b ` + c.where()
	return m.list(ctx, from, `ORDER BY b.created_at DESC, b.id DESC`, c, filters)
}

// GetLikedBy returns the books userID liked, most recently liked first.
func (m BookModel) GetLikedBy(ctx context.Context, userID int64, filters Filters) ([]*Book, Metadata, error) {
	c := &conditions{}
	c.add("l.user_id = %s", userID)
	from := `FROM books b JOIN likes l ON l.book_id = b.id ` + c.where()
	return m.list(ctx, from, `ORDER BY l.created_at DESC, l.id DESC`, c, filters)
}

// list counts the filtered set, then fetches the requested page of it.
func (m BookModel) list(ctx context.Context, from, orderBy string, c *conditions, filters Filters) ([]*Book, Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	err := m.DB.QueryRowContext(ctx, `SELECT count(*) `+from, c.args...).Scan(&total)
	if err != nil {
		return nil, Metadata{}, err
	}

	limit, args := c.page(filters)
	query := `SELECT ` + bookColumns + ` ` + from + ` ` + orderBy + ` ` + limit

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		var book Book
		if err := scanBook(rows, &book); err != nil {
			return nil, Metadata{}, err
		}
		books = append(books, &book)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return books, calculateMetadata(total, filters), nil
}
