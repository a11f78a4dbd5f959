// cmd/api/handlers_users.go
package main

import (
	"errors"
	"net/http"

	"github.com/aoideee/kitobchi/internal/data"
	"github.com/aoideee/kitobchi/internal/validator"
)

// showCurrentUserHandler handles GET /users/me.
func (app *applicationDependencies) showCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{"user": app.contextGetUser(r)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateCurrentUserHandler handles PUT /users/me. Omitted fields are kept;
// fields sent as null are cleared.
func (app *applicationDependencies) updateCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	var input data.UpdateProfileInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := *app.contextGetUser(r)
	input.ApplyTo(&user)

	v := validator.New()
	if data.ValidateProfile(v, &user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Users.Update(r.Context(), &user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundMessageResponse(w, r, "user not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": &user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listMyBooksHandler handles GET /users/me/listings. Unlike the public list
// it includes pending and rejected listings; ?status= narrows to one state.
func (app *applicationDependencies) listMyBooksHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qs := r.URL.Query()

	status := data.Status(app.readString(qs, "status", ""))
	if status != "" {
		v.Check(validator.PermittedValue(status, data.StatusPending, data.StatusApproved, data.StatusRejected),
			"status", "must be one of pending, approved or rejected")
	}

	filters := app.readFilters(qs, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetForSeller(r.Context(), app.contextGetUser(r).ID, status, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listSavedBooksHandler handles GET /users/me/saved: the caller's liked
// books, most recently liked first.
func (app *applicationDependencies) listSavedBooksHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()

	filters := app.readFilters(r.URL.Query(), v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetLikedBy(r.Context(), app.contextGetUser(r).ID, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
