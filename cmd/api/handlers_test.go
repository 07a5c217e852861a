package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// doRequest routes req through the full middleware chain and router.
func doRequest(app *applicationDependencies, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthcheckIsUnauthenticated(t *testing.T) {
	app, mock := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Supplying both title and isbn is rejected up front: the response is a 400
// and the database is never queried (the sqlmock has no expectations, so any
// query would fail the test).
func TestListBooksRejectsTitleAndISBNTogether(t *testing.T) {
	app, mock := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/books?title=dom&isbn=9788535910663", nil)
	req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, codeValidationError, body.Error.Code)
	assert.Equal(t, "please provide either title or isbn, not both", body.Error.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShowBookNotFound(t *testing.T) {
	app, mock := newTestApp(t)

	mock.ExpectQuery("FROM books b").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "year", "isbn", "on_loan"}))

	req := httptest.NewRequest(http.MethodGet, "/books/404", nil)
	req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decodeError(t, rec).Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A loan for a book that already has an open loan maps the storage conflict
// to a 409 with a stable code.
func TestCreateLoanConflict(t *testing.T) {
	app, mock := newTestApp(t)

	mock.ExpectQuery("INSERT INTO loans").
		WithArgs(int64(4), int64(9), date(2023, 1, 1), date(2023, 1, 8)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "loans_one_active_per_book"})

	body := `{"user_id": 4, "book_id": 9, "start_date": "2023-01-01", "end_date": "2023-01-08"}`
	req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
	req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeBookAlreadyOnLoan, decodeError(t, rec).Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLoanValidation(t *testing.T) {
	app, mock := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"end before start", `{"user_id": 4, "book_id": 9, "start_date": "2023-01-08", "end_date": "2023-01-01"}`},
		{"bad date format", `{"user_id": 4, "book_id": 9, "start_date": "01/01/2023", "end_date": "2023-01-08"}`},
		{"missing ids", `{"start_date": "2023-01-01", "end_date": "2023-01-08"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(tt.body))
			req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
			rec := doRequest(app, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, codeValidationError, decodeError(t, rec).Error.Code)
		})
	}

	// None of the invalid requests may reach the database.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLoan(t *testing.T) {
	app, mock := newTestApp(t)

	mock.ExpectQuery("INSERT INTO loans").
		WithArgs(int64(4), int64(9), date(2023, 1, 1), date(2023, 1, 22)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "book_title", "book_author", "book_year", "book_isbn"}).
			AddRow(int64(31), "Vidas Secas", "Graciliano Ramos", 1938, "9788501004635"))

	body := `{"user_id": 4, "book_id": 9, "start_date": "2023-01-01", "end_date": "2023-01-22"}`
	req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
	req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id": 31`)
	assert.Contains(t, rec.Body.String(), `"status": "active"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

// The return response carries the due date and the frozen figures; a second
// return on the same loan answers 409.
func TestReturnLoan(t *testing.T) {
	app, mock := newTestApp(t)

	loanRow := func(returned bool) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "book_id", "book_title", "book_author", "book_year", "book_isbn",
			"start_date", "end_date", "return_date", "late_days", "fine",
		})
		if returned {
			return rows.AddRow(int64(7), int64(4), int64(9), "Vidas Secas", "Graciliano Ramos", 1938, "9788501004635",
				date(2023, 1, 1), date(2023, 1, 8), date(2023, 1, 15), 7, 14.00)
		}
		return rows.AddRow(int64(7), int64(4), int64(9), "Vidas Secas", "Graciliano Ramos", 1938, "9788501004635",
			date(2023, 1, 1), date(2023, 1, 8), nil, nil, nil)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(7)).WillReturnRows(loanRow(false))
	mock.ExpectExec("UPDATE loans").
		WithArgs(date(2023, 1, 15), 7, 14.00, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPut, "/loans/7/return", nil)
	req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"end_date": "2023-01-08"`)
	assert.Contains(t, rec.Body.String(), `"late_days": 7`)
	assert.Contains(t, rec.Body.String(), `"fine": 14`)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(7)).WillReturnRows(loanRow(true))
	mock.ExpectRollback()

	rec = doRequest(app, req.Clone(req.Context()))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeLoanAlreadyReturned, decodeError(t, rec).Error.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithActiveLoans(t *testing.T) {
	app, mock := newTestApp(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodDelete, "/users/4", nil)
	req.Header.Set("Authorization", basicAuth("admin", "s3cret"))
	rec := doRequest(app, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeUserHasActiveLoans, decodeError(t, rec).Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
