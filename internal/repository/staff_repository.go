package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hollowhill/haunt-ticketing/internal/model"
	"github.com/hollowhill/haunt-ticketing/internal/utils"
)

// ErrEmailExists is returned when creating a staff account with an
// email that is already registered.
var ErrEmailExists = errors.New("email already exists")

// StaffRepo mirrors the staff_users table.  Staff accounts gate the
// scan and admin endpoints; guests never have accounts.
type StaffRepo struct{ db *sql.DB }

// NewStaffRepo returns a StaffRepo bound to the given database.
func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

// Create inserts a staff user with a bcrypt-hashed password and returns
// the new ID.
func (r *StaffRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO staff_users (email, password_hash, role) VALUES (?, ?, ?)`,
		email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an active staff user by normalized email.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (model.StaffUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.StaffUser
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, is_active, created_at, updated_at
		 FROM staff_users WHERE email = ? LIMIT 1`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
