// cmd/api/loans.go
// This file contains all HTTP request handlers for the loans resource:
// the loan lifecycle entry points (create, return) and the derived-status
// read projections.
package main

import (
	"errors"
	"net/http"

	"github.com/ebarbosa/library-api/internal/data"
	"github.com/ebarbosa/library-api/internal/lending"
	"github.com/ebarbosa/library-api/internal/validator"
)

// listLoansHandler handles GET /loans?bookid=&status=.
// Both filters are optional; status filters on the derived value, so loans
// that crossed their due date appear as late without any background job.
func (app *applicationDependencies) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	bookID := app.readInt64(qs, "bookid", 0)
	status := app.readString(qs, "status", "")

	v := validator.New()
	v.Check(validator.In(status, "", string(lending.StatusActive), string(lending.StatusLate), string(lending.StatusReturned)),
		"status", "must be one of active, late or returned")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	loans, err := app.models.Loans.GetAll(bookID, lending.Status(status))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLoanHandler handles GET /loans/:id.
// Responds 404 if no loan with that ID exists.
func (app *applicationDependencies) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createLoanHandler handles POST /loans.
// The request names a user, a book, and the agreed start/end dates. The
// insert is atomic with the availability check: a book with an open loan
// yields 409, a missing user or book yields 404. On success the response
// is 201 with the full loan, including the book snapshot.
func (app *applicationDependencies) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateLoanInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.UserID >= 1, "user_id", "must be a positive integer")
	v.Check(input.BookID >= 1, "book_id", "must be a positive integer")

	startDate, startOK := parseDate(input.StartDate)
	v.Check(startOK, "start_date", "must be a valid date in YYYY-MM-DD format")
	endDate, endOK := parseDate(input.EndDate)
	v.Check(endOK, "end_date", "must be a valid date in YYYY-MM-DD format")
	if startOK && endOK {
		v.Check(!endDate.Before(startDate), "end_date", "must not be before start_date")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	loan := &data.Loan{
		UserID:    input.UserID,
		Book:      data.BookSnapshot{BookID: input.BookID},
		StartDate: startDate,
		EndDate:   endDate,
	}

	err = app.models.Loans.Insert(loan)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrBookOnLoan):
			app.conflictResponse(w, r, codeBookAlreadyOnLoan, "the book is already on loan")
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// returnLoanHandler handles PUT /loans/:id/return.
// Returning is a once-only transition: the first call freezes the return
// date, late days and fine; any further call yields 409 and leaves the
// stored figures untouched. The response carries the due date and the
// final late days and fine.
func (app *applicationDependencies) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Return(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrAlreadyReturned):
			app.conflictResponse(w, r, codeLoanAlreadyReturned, "the loan has already been returned")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	body := envelope{
		"end_date":  loan.EndDate.Format(dateLayout),
		"late_days": loan.LateDays,
		"fine":      loan.Fine,
	}
	err = app.writeJSON(w, http.StatusOK, body, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
