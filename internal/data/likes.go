package data

import (
	"context"
	"database/sql"
	"time"
)

// Like links one user to one book they saved.
type Like struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BookID    int64     `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

type LikeModel struct {
	DB *sql.DB
}

// Insert relies on the unique_user_book_like constraint, so two racing
// inserts for the same pair yield exactly one row and one ErrDuplicateLike.
// A missing book surfaces as ErrRecordNotFound.
func (m LikeModel) Insert(ctx context.Context, like *Like) error {
	query := `
		INSERT INTO likes (user_id, book_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, like.UserID, like.BookID).Scan(&like.ID, &like.CreatedAt)
	return classify(err)
}

func (m LikeModel) Delete(ctx context.Context, userID, bookID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM likes WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (m LikeModel) Exists(ctx context.Context, userID, bookID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := m.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND book_id = $2)`, userID, bookID,
	).Scan(&exists)
	return exists, err
}
