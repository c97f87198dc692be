package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/aulanet/aulanet-backend/internal/model"
)

// UserRepo reads platform accounts from the `users` table.  This subsystem
// never writes users; account management belongs to the admin CRUD surface.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var (
		u         model.User
		studentID sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,student_id,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &studentID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if studentID.Valid {
		u.StudentID = uint64(studentID.Int64)
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		u         model.User
		studentID sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,student_id,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &studentID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if studentID.Valid {
		u.StudentID = uint64(studentID.Int64)
	}
	return u, nil
}
