package data

import (
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebarbosa/library-api/internal/lending"

	_ "github.com/lib/pq"
)

// openTestPostgres connects to the database named by TEST_POSTGRES_DSN and
// applies the schema. Tests using it are skipped when the variable is unset.
func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration tests")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Ping())

	schema, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

// The availability invariant under real concurrency: many simultaneous
// creates for one book, exactly one may win; after returning, the book can
// be loaned again.
func TestConcurrentLoanCreation(t *testing.T) {
	db := openTestPostgres(t)
	models := NewModels(db, lending.Policy{FineRatePerDay: 2.00}, time.Now)

	user := &User{Name: "Ana Souza", Email: "ana@example.com", CPF: "12345678901", Address: "Rua A, 10"}
	require.NoError(t, models.Users.Insert(user))

	book := &Book{Title: "Vidas Secas", Author: "Graciliano Ramos", Year: 1938, ISBN: "9788501004635"}
	require.NoError(t, models.Books.Insert(book))

	t.Cleanup(func() {
		db.Exec(`DELETE FROM loans WHERE user_id = $1 OR book_id = $2`, user.ID, book.ID)
		db.Exec(`DELETE FROM books WHERE id = $1`, book.ID)
		db.Exec(`DELETE FROM users WHERE id = $1`, user.ID)
	})

	start := time.Now().UTC()
	end := start.AddDate(0, 0, 7)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	loans := make([]*Loan, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loan := &Loan{
				UserID:    user.ID,
				Book:      BookSnapshot{BookID: book.ID},
				StartDate: start,
				EndDate:   end,
			}
			errs[i] = models.Loans.Insert(loan)
			loans[i] = loan
		}(i)
	}
	wg.Wait()

	var winner *Loan
	successes := 0
	for i, err := range errs {
		if err == nil {
			successes++
			winner = loans[i]
		} else {
			assert.ErrorIs(t, err, ErrBookOnLoan)
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent create may win")

	// The book now reads as rented, and its loaner cannot be deleted.
	got, err := models.Books.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.BookRented, got.Status)
	assert.ErrorIs(t, models.Users.Delete(user.ID), ErrUserHasActiveLoans)

	// Returning frees the book for a new loan; a second return is refused.
	_, err = models.Loans.Return(winner.ID)
	require.NoError(t, err)
	_, err = models.Loans.Return(winner.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	again := &Loan{
		UserID:    user.ID,
		Book:      BookSnapshot{BookID: book.ID},
		StartDate: start,
		EndDate:   end,
	}
	require.NoError(t, models.Loans.Insert(again))
}
