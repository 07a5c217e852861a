// cmd/api/errors.go
// This file contains all error-response helpers for the application.
// Every error body has the same shape: {"error": {"message": ..., "code": ...}}
// where code is a stable machine-readable string. Internal detail is logged
// server-side and never echoed to the client.
package main

import (
	"log/slog"
	"net/http"
)

// Stable error codes returned to clients alongside the human message.
const (
	codeValidationError     = "VALIDATION_ERROR"
	codeNotFound            = "NOT_FOUND"
	codeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	codeBookAlreadyOnLoan   = "BOOK_ALREADY_ON_LOAN"
	codeLoanAlreadyReturned = "LOAN_ALREADY_RETURNED"
	codeUserHasActiveLoans  = "USER_HAS_ACTIVE_LOANS"
	codeAuthRequired        = "AUTHENTICATION_REQUIRED"
	codeInvalidCredentials  = "INVALID_CREDENTIALS"
	codeAccessDenied        = "ACCESS_DENIED"
	codeAuthConfigMissing   = "SERVER_AUTH_CONFIG_MISSING"
	codeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	codeServerError         = "INTERNAL_SERVER_ERROR"
)

// logError logs an internal error at ERROR level with the request method and URL for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
		slog.String("request_id", requestIDFrom(r)),
	)
}

// errorResponse sends the JSON error envelope with the given status, code and
// message. It is the low-level building block used by the helpers below.
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message any) {
	data := envelope{"error": envelope{"message": message, "code": code}}
	err := app.writeJSON(w, status, data, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and sends a generic message to
// the client. Raw driver errors and stack traces stay in the server log.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, codeServerError, "the server encountered a problem and could not process your request")
}

// notFoundResponse sends a 404 Not Found error.
func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, codeNotFound, "the requested resource could not be found")
}

// methodNotAllowedResponse sends a 405 Method Not Allowed error.
func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request error with the error message from the caller.
func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, codeValidationError, err.Error())
}

// failedValidationResponse sends a 422 Unprocessable Entity response containing
// the field-level validation errors collected by a Validator.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, codeValidationError, errors)
}

// conflictResponse sends a 409 Conflict with a caller-supplied code. Used for
// the loan lifecycle conflicts: book already on loan, loan already returned,
// user with active loans.
func (app *applicationDependencies) conflictResponse(w http.ResponseWriter, r *http.Request, code, message string) {
	app.errorResponse(w, r, http.StatusConflict, code, message)
}

// authenticationRequiredResponse sends a 401 for requests with no Basic
// Authorization header at all.
func (app *applicationDependencies) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="library", charset="UTF-8"`)
	app.errorResponse(w, r, http.StatusUnauthorized, codeAuthRequired, "authentication required: provide Basic authentication credentials")
}

// invalidCredentialsResponse sends a 401 for Authorization headers that could
// not be decoded into a username/password pair.
func (app *applicationDependencies) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="library", charset="UTF-8"`)
	app.errorResponse(w, r, http.StatusUnauthorized, codeInvalidCredentials, "invalid authentication credentials format")
}

// accessDeniedResponse sends a 403 for well-formed credentials that match no
// configured identity.
func (app *applicationDependencies) accessDeniedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, codeAccessDenied, "access denied: invalid credentials")
}

// authConfigMissingResponse sends a 500 when the server has no credentials
// configured to verify against.
func (app *applicationDependencies) authConfigMissingResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusInternalServerError, codeAuthConfigMissing, "server authentication configuration is missing")
}

// rateLimitExceededResponse sends a 429 Too Many Requests error.
func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, codeRateLimitExceeded, "rate limit exceeded")
}
