// cmd/api/handlers_books.go
// Handlers for the books resource. Each handler is a method on
// *applicationDependencies so it has access to the logger and models.
package main

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/aoideee/kitobchi/internal/data"
	"github.com/aoideee/kitobchi/internal/validator"
)

// bookDetail is the single-book response: the listing plus its related rows.
type bookDetail struct {
	*data.Book
	Seller   *data.User     `json:"seller"`
	Category *data.Category `json:"category"`
	Language *data.Language `json:"language"`
	IsLiked  bool           `json:"is_liked"`
}

// visibleTo reports whether user may see book. Only approved listings are
// public; sellers always see their own.
func visibleTo(book *data.Book, user *data.User) bool {
	if book.Status == data.StatusApproved {
		return true
	}
	return !user.IsAnonymous() && user.ID == book.SellerID
}

// listBooksHandler handles GET /books.
// Supported query parameters: category_id, language_id, listing_type,
// min_price, max_price, author, location, search, page, page_size.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qs := r.URL.Query()

	var filters data.BookFilters
	filters.CategoryID = app.readInt64Ptr(qs, "category_id", v)
	filters.LanguageID = app.readInt64Ptr(qs, "language_id", v)
	filters.ListingType = data.ListingType(app.readString(qs, "listing_type", ""))
	filters.MinPrice = app.readFloatPtr(qs, "min_price", v)
	filters.MaxPrice = app.readFloatPtr(qs, "max_price", v)
	filters.Author = app.readString(qs, "author", "")
	filters.Location = app.readString(qs, "location", "")
	filters.Search = app.readString(qs, "search", "")
	filters.Filters = app.readFilters(qs, v)

	if data.ValidateBookFilters(v, filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAll(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createBookHandler handles POST /books. New listings start as pending and
// belong to the caller.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateBookInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := app.contextGetUser(r)
	book := input.Book(user.ID)

	v := validator.New()
	if data.ValidateBook(v, book); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if ok := app.checkBookReferences(w, r, book); !ok {
		return
	}

	err = app.models.Books.Insert(r.Context(), book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "category or language not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("%s/books/%d", app.config.APIPrefix, book.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"book": book}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /books/:id. The seller, category, language and
// like lookups run concurrently.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundMessageResponse(w, r, "book not found")
		return
	}

	user := app.contextGetUser(r)

	book, err := app.models.Books.Get(r.Context(), id)
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

	detail := bookDetail{Book: book}
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		seller, err := app.models.Users.Get(ctx, book.SellerID)
		if err != nil {
			return fmt.Errorf("load seller: %w", err)
		}
		detail.Seller = seller
		return nil
	})
	if book.CategoryID != nil {
		g.Go(func() error {
			category, err := app.models.Categories.Get(ctx, *book.CategoryID)
			if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
				return fmt.Errorf("load category: %w", err)
			}
			detail.Category = category
			return nil
		})
	}
	if book.LanguageID != nil {
		g.Go(func() error {
			language, err := app.models.Languages.Get(ctx, *book.LanguageID)
			if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
				return fmt.Errorf("load language: %w", err)
			}
			detail.Language = language
			return nil
		})
	}
	if !user.IsAnonymous() {
		g.Go(func() error {
			liked, err := app.models.Likes.Exists(ctx, user.ID, book.ID)
			if err != nil {
				return fmt.Errorf("load like: %w", err)
			}
			detail.IsLiked = liked
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": detail}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PUT /books/:id with patch semantics: absent
// fields are left unchanged and nullable fields may be cleared with null.
// Moderation status cannot be changed here.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundMessageResponse(w, r, "book not found")
		return
	}

	var input data.UpdateBookInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, ok := app.ownedBook(w, r, id, "not authorized to update this book")
	if !ok {
		return
	}

	input.ApplyTo(book)

	v := validator.New()
	if data.ValidateBook(v, book); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if ok := app.checkBookReferences(w, r, book); !ok {
		return
	}

	err = app.models.Books.Update(r.Context(), book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "book not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /books/:id. Likes of the book are removed
// by the foreign key cascade.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundMessageResponse(w, r, "book not found")
		return
	}

	if _, ok := app.ownedBook(w, r, id, "not authorized to delete this book"); !ok {
		return
	}

	err = app.models.Books.Delete(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "book not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedBook loads book id and checks the caller is its seller. On failure it
// writes the 404/403 response and returns false.
func (app *applicationDependencies) ownedBook(w http.ResponseWriter, r *http.Request, id int64, forbidden string) (*data.Book, bool) {
	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "book not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}
	if book.SellerID != app.contextGetUser(r).ID {
		app.notPermittedResponse(w, r, forbidden)
		return nil, false
	}
	return book, true
}

// checkBookReferences confirms the category and language a listing points
// to exist. On failure it writes the response and returns false.
func (app *applicationDependencies) checkBookReferences(w http.ResponseWriter, r *http.Request, book *data.Book) bool {
	ctx := r.Context()

	if book.CategoryID != nil {
		_, err := app.models.Categories.Get(ctx, *book.CategoryID)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.notFoundMessageResponse(w, r, "category not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return false
		}
	}
	if book.LanguageID != nil {
		_, err := app.models.Languages.Get(ctx, *book.LanguageID)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.notFoundMessageResponse(w, r, "language not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return false
		}
	}
	return true
}
