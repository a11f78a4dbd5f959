// cmd/api/handlers_likes.go
package main

import (
	"errors"
	"net/http"

	"github.com/aoideee/kitobchi/internal/data"
	"github.com/aoideee/kitobchi/internal/validator"
)

// likeResponse embeds the liked book in the like record.
type likeResponse struct {
	*data.Like
	Book *data.Book `json:"book"`
}

// createLikeHandler handles POST /likes. The unique (user_id, book_id)
// constraint decides concurrent duplicates.
func (app *applicationDependencies) createLikeHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BookID int64 `json:"book_id"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if v.Check(input.BookID > 0, "book_id", "must be a positive integer"); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user := app.contextGetUser(r)

	book, err := app.models.Books.Get(r.Context(), input.BookID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "book not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}
	if !visibleTo(book, user) {
		app.notFoundMessageResponse(w, r, "book not found")
		return
	}

	like := &data.Like{UserID: user.ID, BookID: book.ID}
	err = app.models.Likes.Insert(r.Context(), like)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateLike):
			app.conflictResponse(w, r, "book already liked")
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "book not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"like": likeResponse{Like: like, Book: book}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteLikeHandler handles DELETE /likes/:book_id.
func (app *applicationDependencies) deleteLikeHandler(w http.ResponseWriter, r *http.Request) {
	bookID, err := app.readIDParam(r, "book_id")
	if err != nil {
		app.notFoundMessageResponse(w, r, "like not found")
		return
	}

	err = app.models.Likes.Delete(r.Context(), app.contextGetUser(r).ID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "like not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
