// cmd/api/handlers_auth.go
package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aoideee/kitobchi/internal/auth"
	"github.com/aoideee/kitobchi/internal/data"
	"github.com/aoideee/kitobchi/internal/validator"
)

// registerUserHandler handles POST /auth/register.
// The response carries the new user's id and profile but never the password hash.
func (app *applicationDependencies) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input data.RegisterInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &data.User{
		Email:     data.NormalizeEmail(input.Email),
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}

	v := validator.New()
	data.ValidateEmail(v, user.Email)
	data.ValidateRegistrationPassword(v, input.Password)
	data.ValidateProfile(v, user)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user.PasswordHash, err = auth.HashPassword(strings.TrimSpace(input.Password))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordTooLong):
			v.AddError("password", "is too long (max 64 characters)")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.models.Users.Insert(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEmail):
			app.conflictResponse(w, r, "email already registered")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loginHandler handles POST /auth/login and returns a bearer access token.
// An unknown email and a wrong password produce the same 401.
func (app *applicationDependencies) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	email := data.NormalizeEmail(input.Email)

	v := validator.New()
	data.ValidateEmail(v, email)
	v.Check(validator.NotBlank(input.Password), "password", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.models.Users.GetByEmail(r.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.invalidCredentialsResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Registration stores the hash of the trimmed password.
	if !auth.CheckPassword(strings.TrimSpace(input.Password), user.PasswordHash) {
		app.invalidCredentialsResponse(w, r)
		return
	}

	token, _, err := app.tokens.Issue(user.Email)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"access_token": token, "token_type": "bearer"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
