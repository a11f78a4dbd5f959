// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the router wrapped in the
// middleware chain.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → requestID → logRequest → securityHeaders → enableCORS →
//	rateLimit → authenticate → router
//
// All resource routes live under config.APIPrefix (default /api/v1).
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	p := app.config.APIPrefix

	router.HandlerFunc(http.MethodGet, "/", app.rootHandler)
	router.HandlerFunc(http.MethodGet, "/health", app.healthcheckHandler)

	// Auth
	router.HandlerFunc(http.MethodPost, p+"/auth/register", app.authRateLimit("register", app.registerUserHandler))
	router.HandlerFunc(http.MethodPost, p+"/auth/login", app.authRateLimit("login", app.loginHandler))

	// Books
	router.HandlerFunc(http.MethodGet, p+"/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodPost, p+"/books", app.requireAuthenticatedUser(app.createBookHandler))
	router.HandlerFunc(http.MethodGet, p+"/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodPut, p+"/books/:id", app.requireAuthenticatedUser(app.updateBookHandler))
	router.HandlerFunc(http.MethodDelete, p+"/books/:id", app.requireAuthenticatedUser(app.deleteBookHandler))

	// Current user
	router.HandlerFunc(http.MethodGet, p+"/users/me", app.requireAuthenticatedUser(app.showCurrentUserHandler))
	router.HandlerFunc(http.MethodPut, p+"/users/me", app.requireAuthenticatedUser(app.updateCurrentUserHandler))
	router.HandlerFunc(http.MethodGet, p+"/users/me/listings", app.requireAuthenticatedUser(app.listMyBooksHandler))
	router.HandlerFunc(http.MethodGet, p+"/users/me/saved", app.requireAuthenticatedUser(app.listSavedBooksHandler))

	// Likes
	router.HandlerFunc(http.MethodPost, p+"/likes", app.requireAuthenticatedUser(app.createLikeHandler))
	router.HandlerFunc(http.MethodDelete, p+"/likes/:book_id", app.requireAuthenticatedUser(app.deleteLikeHandler))

	// Lookups
	router.HandlerFunc(http.MethodGet, p+"/languages", app.listLanguagesHandler)
	router.HandlerFunc(http.MethodGet, p+"/categories", app.listCategoriesHandler)

	if app.images != nil {
		router.HandlerFunc(http.MethodPost, p+"/uploads/images", app.requireAuthenticatedUser(app.uploadImageHandler))
	}

	return app.recoverPanic(
		app.requestID(
			app.logRequest(
				app.securityHeaders(
					app.enableCORS(
						app.rateLimit(
							app.authenticate(router)))))))
}
