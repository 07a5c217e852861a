// internal/data/models.go
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/ebarbosa/library-api/internal/lending"
)

// Models is a top-level container that groups all database model types together.
// It is passed around the application via applicationDependencies so every handler
// has access to the database without importing sql directly.
type Models struct {
	Books BookModel // Database operations for the books table
	Users UserModel // Database operations for the users table
	Loans LoanModel // Loan lifecycle: create, return, derived-status reads
}

// NewModels constructs a Models value wired up to the given database connection
// pool, fine policy and clock. The clock is injectable so tests can pin "today"
// when exercising the status and fine derivations.
func NewModels(db *sql.DB, policy lending.Policy, now func() time.Time) Models {
	if now == nil {
		now = time.Now
	}
	return Models{
		Books: BookModel{DB: db},
		Users: UserModel{DB: db},
		Loans: LoanModel{DB: db, Policy: policy, Now: now},
	}
}

// Sentinel errors returned by the model layer. Handlers translate these to
// HTTP statuses with errors.Is; everything else is a 500.
var (
	// ErrRecordNotFound is returned when a query finds no matching row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrBookOnLoan is returned when creating a loan for a book that
	// already has an open loan.
	ErrBookOnLoan = errors.New("book already on loan")

	// ErrAlreadyReturned is returned when returning a loan whose return
	// date is already set.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrUserHasActiveLoans is returned when deleting a user who still
	// has open loans.
	ErrUserHasActiveLoans = errors.New("user has active loans")
)

// Postgres error classes we care about (lib/pq exposes the five-character
// SQLSTATE on pq.Error).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation reports whether err is a unique_violation, optionally on
// a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// isForeignKeyViolation reports whether err is a foreign_key_violation.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation
}
