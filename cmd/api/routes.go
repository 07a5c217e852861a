// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in the application middleware.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → requestID → rateLimit → router
//
// Every route except GET /healthz is additionally wrapped in requireAdmin,
// the basic-auth gate.
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	// Health check: unauthenticated, always 200.
	router.HandlerFunc(http.MethodGet, "/healthz", app.healthcheckHandler)

	// Book catalog
	router.HandlerFunc(http.MethodGet, "/books", app.requireAdmin(app.listBooksHandler))
	router.HandlerFunc(http.MethodGet, "/books/:id", app.requireAdmin(app.showBookHandler))
	router.HandlerFunc(http.MethodPost, "/books", app.requireAdmin(app.createBookHandler))
	router.HandlerFunc(http.MethodPut, "/books/:id", app.requireAdmin(app.updateBookHandler))
	router.HandlerFunc(http.MethodDelete, "/books/:id", app.requireAdmin(app.deleteBookHandler))

	// Users
	router.HandlerFunc(http.MethodGet, "/users", app.requireAdmin(app.listUsersHandler))
	router.HandlerFunc(http.MethodGet, "/users/:id", app.requireAdmin(app.showUserHandler))
	router.HandlerFunc(http.MethodGet, "/users/:id/loans", app.requireAdmin(app.listUserLoansHandler))
	router.HandlerFunc(http.MethodPost, "/users", app.requireAdmin(app.createUserHandler))
	router.HandlerFunc(http.MethodDelete, "/users/:id", app.requireAdmin(app.deleteUserHandler))

	// Loans
	router.HandlerFunc(http.MethodGet, "/loans", app.requireAdmin(app.listLoansHandler))
	router.HandlerFunc(http.MethodGet, "/loans/:id", app.requireAdmin(app.showLoanHandler))
	router.HandlerFunc(http.MethodPost, "/loans", app.requireAdmin(app.createLoanHandler))
	router.HandlerFunc(http.MethodPut, "/loans/:id/return", app.requireAdmin(app.returnLoanHandler))

	// recoverPanic is outermost so it catches panics from the other
	// middleware and the router alike.
	return app.recoverPanic(app.requestID(app.rateLimit(router)))
}
