package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/roomdesk/room-booking-api/internal/model"
)

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when a create or email change collides
// with an existing account.  Emails are stored lowercased.
var ErrEmailExists = errors.New("email already exists")

// UserRepo provides access to the 'users' table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// NormalizeEmail lowercases and trims an address; every read and write
// of the email column goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user with an already-hashed password and returns the
// stored row.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*model.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, NormalizeEmail(email), passwordHash, role)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE id = ? LIMIT 1"
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE email = ? LIMIT 1"
	u, err := scanUser(r.db.QueryRowContext(ctx, q, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ExistsByID reports whether a user with the given id exists.
func (r *UserRepo) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users ORDER BY id ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UserPatch carries the optional fields of a user update; nil means
// leave the column alone.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *string
}

// UpdateByID applies the present fields of p and returns the updated
// row.  An empty patch is a plain re-read.
func (r *UserRepo) UpdateByID(ctx context.Context, id uint64, p UserPatch) (*model.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, NormalizeEmail(*p.Email))
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *p.PasswordHash)
	}
	if p.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *p.Role)
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			if strings.Contains(err.Error(), "1062") {
				return nil, ErrEmailExists
			}
			return nil, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			// Could also mean an identical write; confirm with a read.
			if _, err := r.GetByID(ctx, id); err != nil {
				return nil, err
			}
		}
	}
	return r.GetByID(ctx, id)
}

// DeleteByID removes a user.  Unknown ids map to ErrUserNotFound.
func (r *UserRepo) DeleteByID(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
