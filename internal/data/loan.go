package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ebarbosa/library-api/internal/lending"
)

// BookSnapshot is the copy of the book's catalog fields embedded in a loan
// at creation time. It is owned by the loan: later edits or deletion of the
// book do not touch it, so historical loan records stay accurate.
type BookSnapshot struct {
	BookID int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	ISBN   string `json:"isbn"`
}

// Loan represents one lending of one book to one user. StartDate and EndDate
// are set at creation; ReturnDate is nil until the loan is returned exactly
// once. Status, LateDays and Fine are derived: computed from the clock on
// every read while the loan is open, and frozen by the return transaction.
type Loan struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Book       BookSnapshot   `json:"book"`
	StartDate  time.Time      `json:"start_date"`
	EndDate    time.Time      `json:"end_date"`
	ReturnDate *time.Time     `json:"return_date,omitempty"`
	Status     lending.Status `json:"status"`
	LateDays   int            `json:"late_days"`
	Fine       float64        `json:"fine"`
}

// CreateLoanInput holds the fields a client must supply when creating a loan.
// Dates are ISO "YYYY-MM-DD" strings, parsed and validated in the handler.
type CreateLoanInput struct {
	UserID    int64  `json:"user_id"`
	BookID    int64  `json:"book_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// LoanModel owns the loan lifecycle against the database: the atomic
// create (one open loan per book, enforced by the loans_one_active_per_book
// partial unique index), the once-only return transaction, and reads that
// apply the lending derivations to every row.
type LoanModel struct {
	DB     *sql.DB          // Shared database connection pool
	Policy lending.Policy   // Fine policy, configured at startup
	Now    func() time.Time // Clock, injectable for tests
}

const loanColumns = `id, user_id, book_id, book_title, book_author, book_year, book_isbn, start_date, end_date, return_date, late_days, fine`

// Insert creates a loan for the given user and book, snapshotting the book's
// catalog fields in the same INSERT statement that checks the availability
// invariant. Three outcomes besides success:
//
//   - the book has an open loan: the partial unique index rejects the row
//     and we return ErrBookOnLoan — under concurrent creates for one book
//     exactly one caller wins, the database serializes the rest;
//   - the book id matches no row: the INSERT..SELECT inserts nothing and we
//     return ErrRecordNotFound;
//   - the user id violates the foreign key: ErrRecordNotFound.
//
// On success the loan struct is completed with the database-assigned id, the
// snapshot, and the derived status fields.
func (m LoanModel) Insert(loan *Loan) error {
	query := `
		INSERT INTO loans (user_id, book_id, book_title, book_author, book_year, book_isbn, start_date, end_date)
		SELECT $1, b.id, b.title, b.author, b.year, b.isbn, $3, $4
		FROM books b
		WHERE b.id = $2
		RETURNING id, book_title, book_author, book_year, book_isbn`

	err := m.DB.QueryRow(query, loan.UserID, loan.Book.BookID, loan.StartDate, loan.EndDate).Scan(
		&loan.ID,
		&loan.Book.Title,
		&loan.Book.Author,
		&loan.Book.Year,
		&loan.Book.ISBN,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "loans_one_active_per_book"):
			return ErrBookOnLoan
		case isForeignKeyViolation(err):
			return ErrRecordNotFound
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	loan.ReturnDate = nil
	m.derive(loan, nil, nil)
	return nil
}

// Get retrieves a single loan by id with its derived fields.
// Returns ErrRecordNotFound if no loan with the given id exists.
func (m LoanModel) Get(id int64) (*Loan, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	loan, err := m.scanLoan(m.DB.QueryRow(query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return loan, nil
}

// GetAll retrieves loans, optionally filtered by book and by derived status.
// bookID <= 0 and an empty status match everything. The status filter is
// applied after derivation, never against a stored column, so a loan that
// crossed its due date shows up as late immediately.
func (m LoanModel) GetAll(bookID int64, status lending.Status) ([]*Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE ($1 <= 0 OR book_id = $1)
		ORDER BY id`

	return m.queryLoans(query, status, bookID)
}

// GetAllForUser retrieves every loan belonging to the given user, with
// derived fields, ordered by id.
func (m LoanModel) GetAllForUser(userID int64) ([]*Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1
		ORDER BY id`

	return m.queryLoans(query, "", userID)
}

// Return closes the loan with the given id: sets the return date to today,
// computes the final late days and fine, and freezes them. The row is locked
// for the duration of the transaction so concurrent returns of the same loan
// serialize; only the first one wins and the rest observe ErrAlreadyReturned.
// The frozen figures are never recomputed afterwards.
func (m LoanModel) Return(id int64) (*Loan, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	loan, err := m.scanLoan(tx.QueryRow(query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	if loan.ReturnDate != nil {
		return nil, ErrAlreadyReturned
	}

	today := m.Now()
	lateDays := lending.LateDays(loan.EndDate, &today, today)
	fine := m.Policy.Fine(lateDays)

	_, err = tx.Exec(`
		UPDATE loans
		SET return_date = $1, late_days = $2, fine = $3
		WHERE id = $4`,
		today, lateDays, fine, id,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.ReturnDate = &today
	loan.Status = lending.StatusReturned
	loan.LateDays = lateDays
	loan.Fine = fine
	return loan, nil
}

// queryLoans runs a loan projection query, derives the status fields for
// every row, and applies the optional derived-status filter.
func (m LoanModel) queryLoans(query string, status lending.Status, args ...any) ([]*Loan, error) {
	rows, err := m.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []*Loan{}

	for rows.Next() {
		loan, err := m.scanLoan(rows)
		if err != nil {
			return nil, err
		}
		if status != "" && loan.Status != status {
			continue
		}
		loans = append(loans, loan)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return loans, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLoan scans one loan row and fills in the derived fields.
func (m LoanModel) scanLoan(row rowScanner) (*Loan, error) {
	var loan Loan
	var userID, bookID sql.NullInt64
	var returnDate sql.NullTime
	var lateDays sql.NullInt64
	var fine sql.NullFloat64

	err := row.Scan(
		&loan.ID,
		&userID,
		&bookID,
		&loan.Book.Title,
		&loan.Book.Author,
		&loan.Book.Year,
		&loan.Book.ISBN,
		&loan.StartDate,
		&loan.EndDate,
		&returnDate,
		&lateDays,
		&fine,
	)
	if err != nil {
		return nil, err
	}

	loan.UserID = userID.Int64
	loan.Book.BookID = bookID.Int64
	if returnDate.Valid {
		loan.ReturnDate = &returnDate.Time
	}

	m.derive(&loan, &lateDays, &fine)
	return &loan, nil
}

// derive fills Status, LateDays and Fine. Open loans are assessed against
// the current clock on every read; returned loans carry the figures frozen
// by the return transaction (falling back to recomputation from the return
// date, which yields the same values, if the stored columns are absent).
func (m LoanModel) derive(loan *Loan, storedLateDays *sql.NullInt64, storedFine *sql.NullFloat64) {
	if loan.ReturnDate == nil {
		loan.Status, loan.LateDays, loan.Fine = m.Policy.Assess(loan.EndDate, nil, m.Now())
		return
	}

	loan.Status = lending.StatusReturned
	if storedLateDays != nil && storedLateDays.Valid {
		loan.LateDays = int(storedLateDays.Int64)
	} else {
		loan.LateDays = lending.LateDays(loan.EndDate, loan.ReturnDate, *loan.ReturnDate)
	}
	if storedFine != nil && storedFine.Valid {
		loan.Fine = storedFine.Float64
	} else {
		loan.Fine = m.Policy.Fine(loan.LateDays)
	}
}
