// cmd/api/handlers_lookups.go
package main

import (
	"net/http"
)

// rootHandler handles GET /.
func (app *applicationDependencies) rootHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{
		"message": "Welcome to Kitobchi API",
		"version": appVersion,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// healthcheckHandler handles GET /health. It does not touch the database.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{
		"status":      "healthy",
		"environment": app.config.Environment,
		"version":     appVersion,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listLanguagesHandler handles GET /languages, ordered by name.
func (app *applicationDependencies) listLanguagesHandler(w http.ResponseWriter, r *http.Request) {
	languages, err := app.models.Languages.GetAll(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"languages": languages}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listCategoriesHandler handles GET /categories, ordered by name.
func (app *applicationDependencies) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := app.models.Categories.GetAll(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"categories": categories}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
