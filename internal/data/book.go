// Package data provides the data models and database interaction logic
// for the library management system.
package data

import (
	"database/sql"
	"errors"

	"github.com/ebarbosa/library-api/internal/lending"
)

// Book represents a single book record stored in the database.
// Status is never persisted: it is derived at read time from the loan set
// (rented iff an open loan exists), so it maps to a computed column in the
// queries below rather than to the books table itself.
type Book struct {
	ID     int64  `json:"id"`     // Unique identifier assigned by the database
	Title  string `json:"title"`  // Title of the book
	Author string `json:"author"` // Author of the book
	Year   int    `json:"year"`   // Year the book was published
	ISBN   string `json:"isbn"`   // ISBN identifier (not enforced unique)
	Status string `json:"status"` // Derived: "available" or "rented"
}

// CreateBookInput holds the fields a client must supply when creating a new book.
type CreateBookInput struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	ISBN   string `json:"isbn"`
}

// UpdateBookInput holds the fields a client may supply when partially updating
// a book. Every field is a pointer so we can distinguish between "not provided"
// (nil) and "intentionally set to zero/empty". Only non-nil fields are applied.
type UpdateBookInput struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Year   *int    `json:"year"`
	ISBN   *string `json:"isbn"`
}

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting book records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// bookSelect projects a book row together with the "has an open loan" fact
// that BookStatus turns into available/rented. The EXISTS is evaluated at
// read time so a book crossing its due date needs no background job.
const bookSelect = `
	SELECT b.id, b.title, b.author, b.year, b.isbn,
	       EXISTS (
	           SELECT 1 FROM loans l
	           WHERE l.book_id = b.id AND l.return_date IS NULL
	       ) AS on_loan
	FROM books b`

// Insert adds a new book record to the database.
// After a successful insert the database-assigned id is written back into
// the book struct, and the status is available by definition (a book with
// no loans has no open loan).
func (m BookModel) Insert(book *Book) error {
	query := `
		INSERT INTO books (title, author, year, isbn)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := m.DB.QueryRow(query, book.Title, book.Author, book.Year, book.ISBN).Scan(&book.ID)
	if err != nil {
		return err
	}

	book.Status = lending.BookAvailable
	return nil
}

// Get retrieves a single book by its primary key, with its derived status.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := bookSelect + ` WHERE b.id = $1`

	var book Book
	var onLoan bool
	err := m.DB.QueryRow(query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Year,
		&book.ISBN,
		&onLoan,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	book.Status = lending.BookStatus(onLoan)
	return &book, nil
}

// GetAll retrieves books filtered by title substring (case-insensitive),
// exact ISBN, and derived status. Empty filter values match everything.
// The status filter is applied in Go after derivation so the read path and
// the filter can never disagree on what "rented" means.
func (m BookModel) GetAll(title, isbn, status string) ([]*Book, error) {
	query := bookSelect + `
		WHERE ($1 = '' OR b.title ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR b.isbn = $2)
		ORDER BY b.id`

	rows, err := m.DB.Query(query, title, isbn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*Book{}

	for rows.Next() {
		var book Book
		var onLoan bool
		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Year,
			&book.ISBN,
			&onLoan,
		)
		if err != nil {
			return nil, err
		}

		book.Status = lending.BookStatus(onLoan)
		if status != "" && book.Status != status {
			continue
		}
		books = append(books, &book)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return books, nil
}

// Update applies the non-nil fields of input to the book with the given id
// and returns the updated record. Returns ErrRecordNotFound if the book does
// not exist. Loans are unaffected: they keep their snapshot of the book as
// it was at loan time.
func (m BookModel) Update(id int64, input UpdateBookInput) (*Book, error) {
	book, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Year != nil {
		book.Year = *input.Year
	}
	if input.ISBN != nil {
		book.ISBN = *input.ISBN
	}

	query := `
		UPDATE books
		SET title = $1, author = $2, year = $3, isbn = $4
		WHERE id = $5
		RETURNING id`

	err = m.DB.QueryRow(query, book.Title, book.Author, book.Year, book.ISBN, book.ID).Scan(&book.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return book, nil
}

// Delete removes the book with the given id from the database.
// A book that is currently on loan cannot be deleted; the open-loan check
// and the delete run in one transaction so a concurrent createLoan cannot
// race past it. Returned loans keep their snapshot and get a nulled book
// reference from the schema. Returns ErrRecordNotFound or ErrBookOnLoan.
func (m BookModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	tx, err := m.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var onLoan bool
	err = tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE book_id = $1 AND return_date IS NULL
		)`, id).Scan(&onLoan)
	if err != nil {
		return err
	}
	if onLoan {
		return ErrBookOnLoan
	}

	result, err := tx.Exec(`DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return tx.Commit()
}
