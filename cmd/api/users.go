// cmd/api/users.go
// This file contains all HTTP request handlers for the users resource.
package main

import (
	"errors"
	"net/http"

	"github.com/ebarbosa/library-api/internal/data"
	"github.com/ebarbosa/library-api/internal/validator"
)

// listUsersHandler handles GET /users.
func (app *applicationDependencies) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.models.Users.GetAll()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"users": users}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showUserHandler handles GET /users/:id.
// Responds 404 if no user with that ID exists.
func (app *applicationDependencies) showUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.models.Users.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listUserLoansHandler handles GET /users/:id/loans.
// The user must exist (404 otherwise); the response carries the user's
// loans with their derived status, late days and fine.
func (app *applicationDependencies) listUserLoansHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.models.Users.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	loans, err := app.models.Loans.GetAllForUser(id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createUserHandler handles POST /users.
// It validates name, email, CPF and address, inserts the record, and
// responds 201 with the created user.
func (app *applicationDependencies) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateUserInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Name != "", "name", "must be provided")
	v.Check(input.Email != "", "email", "must be provided")
	v.Check(validator.Matches(input.Email, validator.EmailRX) || input.Email == "", "email", "must be a valid email address")
	v.Check(input.CPF != "", "cpf", "must be provided")
	v.Check(validator.Matches(input.CPF, validator.CPFRX) || input.CPF == "", "cpf", "must be exactly 11 digits")
	v.Check(input.Address != "", "address", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user := &data.User{
		Name:    input.Name,
		Email:   input.Email,
		CPF:     input.CPF,
		Address: input.Address,
	}

	err = app.models.Users.Insert(user)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteUserHandler handles DELETE /users/:id.
// Responds 204 on success, 404 if the user does not exist, and 409 while
// the user still has open loans.
func (app *applicationDependencies) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Users.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrUserHasActiveLoans):
			app.conflictResponse(w, r, codeUserHasActiveLoans, "the user still has active loans and cannot be deleted")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
