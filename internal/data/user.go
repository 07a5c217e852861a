package data

import (
	"database/sql"
	"errors"
)

// User represents a registered library user, the counterparty of a loan.
type User struct {
	ID      int64  `json:"id"`      // Unique identifier assigned by the database
	Name    string `json:"name"`    // Full name
	Email   string `json:"email"`   // Contact email
	CPF     string `json:"cpf"`     // National id, 11 digits
	Address string `json:"address"` // Postal address
}

// CreateUserInput holds the fields a client must supply when creating a user.
type CreateUserInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	CPF     string `json:"cpf"`
	Address string `json:"address"`
}

// UserModel wraps a *sql.DB connection and provides methods for
// creating, reading, and deleting user records.
type UserModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new user record to the database.
// The database-assigned id is written back into the user struct.
func (m UserModel) Insert(user *User) error {
	query := `
		INSERT INTO users (name, email, cpf, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return m.DB.QueryRow(query, user.Name, user.Email, user.CPF, user.Address).Scan(&user.ID)
}

// Get retrieves a single user by its primary key.
// Returns ErrRecordNotFound if no user with the given id exists.
func (m UserModel) Get(id int64) (*User, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, name, email, cpf, address
		FROM users
		WHERE id = $1`

	var user User
	err := m.DB.QueryRow(query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CPF,
		&user.Address,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &user, nil
}

// GetAll retrieves every user, ordered by id.
func (m UserModel) GetAll() ([]*User, error) {
	query := `
		SELECT id, name, email, cpf, address
		FROM users
		ORDER BY id`

	rows, err := m.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*User{}

	for rows.Next() {
		var user User
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.CPF,
			&user.Address,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// Delete removes the user with the given id. Deletion is blocked while the
// user has any open loan: the check and the delete run in one transaction
// so a concurrent createLoan cannot slip a new open loan in between. Loans
// that were already returned stay in history with their user reference
// nulled by the schema. Returns ErrUserHasActiveLoans or ErrRecordNotFound.
func (m UserModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	tx, err := m.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var hasActive bool
	err = tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE user_id = $1 AND return_date IS NULL
		)`, id).Scan(&hasActive)
	if err != nil {
		return err
	}
	if hasActive {
		return ErrUserHasActiveLoans
	}

	result, err := tx.Exec(`DELETE FROM users WHERE id = $1`, id)
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
