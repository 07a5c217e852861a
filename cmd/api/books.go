// cmd/api/books.go
// This file contains all HTTP request handlers for the books resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger and database models.
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/ebarbosa/library-api/internal/data"
	"github.com/ebarbosa/library-api/internal/lending"
	"github.com/ebarbosa/library-api/internal/validator"
)

// listBooksHandler handles GET /books?title=&isbn=&status=.
// Title and isbn are mutually exclusive filters; supplying both is a 400
// before any repository call is made. Status filters on the derived
// available/rented value.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	title := app.readString(qs, "title", "")
	isbn := app.readString(qs, "isbn", "")
	status := app.readString(qs, "status", "")

	if title != "" && isbn != "" {
		app.badRequestResponse(w, r, errors.New("please provide either title or isbn, not both"))
		return
	}

	v := validator.New()
	v.Check(validator.In(status, "", lending.BookAvailable, lending.BookRented), "status", "must be either available or rented")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, err := app.models.Books.GetAll(title, isbn, status)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /books/:id.
// Responds 404 if no book with that ID exists.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
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

// createBookHandler handles POST /books.
// It reads a JSON body with the book's catalog fields, validates them,
// inserts a record, and responds 201 with the created book (including its
// database-assigned ID and derived status).
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateBookInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Title != "", "title", "must be provided")
	v.Check(input.Author != "", "author", "must be provided")
	v.Check(input.ISBN != "", "isbn", "must be provided")
	v.Check(input.Year >= 1450, "year", "must be 1450 or later")
	v.Check(input.Year <= time.Now().Year()+1, "year", "must not be in the far future")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book := &data.Book{
		Title:  input.Title,
		Author: input.Author,
		Year:   input.Year,
		ISBN:   input.ISBN,
	}

	err = app.models.Books.Insert(book)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PUT /books/:id.
// It reads a partial JSON body (UpdateBookInput), applies only the non-nil
// fields to the existing book, and responds with the updated record.
// Responds 404 if the book does not exist. Existing loans keep their
// snapshot of the book's previous catalog data.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input data.UpdateBookInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if input.Title != nil {
		v.Check(*input.Title != "", "title", "must not be empty")
	}
	if input.Author != nil {
		v.Check(*input.Author != "", "author", "must not be empty")
	}
	if input.ISBN != nil {
		v.Check(*input.ISBN != "", "isbn", "must not be empty")
	}
	if input.Year != nil {
		v.Check(*input.Year >= 1450, "year", "must be 1450 or later")
		v.Check(*input.Year <= time.Now().Year()+1, "year", "must not be in the far future")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book, err := app.models.Books.Update(id, input)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
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

// deleteBookHandler handles DELETE /books/:id.
// Responds 204 on success, 404 if the book does not exist, and 409 if the
// book is currently on loan.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Books.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrBookOnLoan):
			app.conflictResponse(w, r, codeBookAlreadyOnLoan, "the book is currently on loan and cannot be deleted")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
